package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goldhabermd/clinic-api/config"
	"github.com/goldhabermd/clinic-api/internal/database/postgres"
	"github.com/goldhabermd/clinic-api/internal/handlers"
	"github.com/goldhabermd/clinic-api/internal/practice"
	"github.com/goldhabermd/clinic-api/internal/repository"
	"github.com/goldhabermd/clinic-api/internal/services"
	"github.com/goldhabermd/clinic-api/internal/storage"
	"github.com/goldhabermd/clinic-api/migrations"
	"github.com/goldhabermd/clinic-api/pkg/anthropic"
	"github.com/goldhabermd/clinic-api/pkg/db"
	"github.com/goldhabermd/clinic-api/pkg/httpclient"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"github.com/goldhabermd/clinic-api/pkg/objectstore"
	"github.com/goldhabermd/clinic-api/pkg/profiling"
	"github.com/goldhabermd/clinic-api/pkg/tracing"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting clinic API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("appointment_store", cfg.Store.Backend),
		zap.String("attachment_backend", cfg.Attachments.Backend),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.Init(tracing.Options{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.ExporterEndpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	// Continuous profiling
	stopProfiling, err := profiling.Start(profiling.Options{
		Enabled:        cfg.Profiling.Enabled,
		Endpoint:       cfg.Profiling.Endpoint,
		AppName:        cfg.Profiling.AppName,
		SampleTypes:    cfg.Profiling.SampleTypes,
		UploadInterval: time.Duration(cfg.Profiling.UploadIntervalSeconds) * time.Second,
		Tags: map[string]string{
			"service":     cfg.Observability.ServiceName,
			"environment": cfg.Server.AppEnv,
		},
	})
	if err != nil {
		logger.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer stopProfiling()

	// Start infrastructure metrics collection
	stopMetrics := make(chan struct{})
	defer close(stopMetrics)
	metrics.RecordInfrastructureMetrics(stopMetrics)

	profile, err := loadProfile(cfg)
	if err != nil {
		logger.Fatal("Failed to load practice profile", zap.Error(err))
	}

	store, ready, err := openAppointmentStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to open appointment store", zap.Error(err))
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("Failed to close appointment store", zap.Error(closeErr))
		}
	}()

	attachments, err := openAttachmentStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open attachment storage", zap.Error(err))
	}

	// Initialize HTTP clients for external API calls
	httpClient := httpclient.NewStandardClient()
	llmClient := anthropic.NewClient(anthropic.Config{
		APIKey:    cfg.Chat.APIKey,
		Model:     cfg.Chat.Model,
		BaseURL:   cfg.Chat.BaseURL,
		MaxTokens: cfg.Chat.MaxTokens,
	}, httpclient.NewClientWithTimeout(cfg.Chat.Timeout()))
	if cfg.Chat.APIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY not set: chat replies will use fallback messages")
	}

	// Initialize services
	appointmentService := services.NewAppointmentService(store, attachments, profile, cfg, httpClient)
	chatService := services.NewChatService(llmClient, profile, cfg)

	// Initialize handlers
	logsHandler := handlers.NewLogsHandler(cfg.Logging.Dir)
	defer logsHandler.Close() //nolint:errcheck

	limiters := newRateLimiters()
	defer limiters.stop()

	router := newRouter(cfg, routeHandlers{
		appointments: handlers.NewAppointmentHandler(appointmentService),
		chat:         handlers.NewChatHandler(chatService),
		practice:     handlers.NewPracticeHandler(profile),
		health:       handlers.NewHealthHandler(ready),
		logs:         logsHandler,
	}, limiters)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       2 * time.Minute, // multipart uploads of up to 50 MiB
		WriteTimeout:      cfg.Chat.Timeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func loadProfile(cfg *config.Config) (*practice.Profile, error) {
	if cfg.Practice.ProfilePath == "" {
		return practice.Default(), nil
	}
	logger.Info("Loading practice profile", zap.String("path", cfg.Practice.ProfilePath))
	return practice.Load(cfg.Practice.ProfilePath)
}

// openAppointmentStore returns the configured record store and, for the
// database backend, a readiness check for the healthcheck.
func openAppointmentStore(ctx context.Context, cfg *config.Config) (repository.AppointmentStore, func(context.Context) error, error) {
	if cfg.Store.Backend != config.StorePostgres {
		store, err := repository.NewFileStore(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file appointment store", zap.String("path", store.Path()))
		return store, nil, nil
	}

	poolCfg := db.PoolConfig{
		URL:        cfg.Database.URL,
		MaxConns:   cfg.Database.MaxConns,
		MinConns:   cfg.Database.MinConns,
		CACertPath: cfg.Database.CACertPath,
	}
	if err := db.RunMigrations(poolCfg, migrations.FS); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	pool, err := db.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, nil, err
	}

	client := postgres.NewClient(pool)
	return repository.NewPostgresStore(client), client.Ping, nil
}

func openAttachmentStore(cfg *config.Config) (storage.AttachmentStore, error) {
	if cfg.Attachments.Backend != config.AttachmentsS3 {
		store, err := storage.NewLocalStore(cfg.Attachments.UploadsDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Using local attachment storage", zap.String("dir", store.Root()))
		return store, nil
	}

	client, err := objectstore.NewClient(objectstore.Config{
		AccessKeyID:     cfg.ObjectStorage.AccessKeyID,
		SecretAccessKey: cfg.ObjectStorage.SecretAccessKey,
		Bucket:          cfg.ObjectStorage.BucketName,
		Endpoint:        cfg.ObjectStorage.Endpoint,
		Region:          cfg.ObjectStorage.Region,
		UsePathStyle:    cfg.ObjectStorage.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewS3Store(client, cfg.ObjectStorage.Prefix), nil
}
