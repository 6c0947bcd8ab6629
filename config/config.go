package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"

	AttachmentsLocal = "local"
	AttachmentsS3    = "s3"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Practice      PracticeConfig
	Store         StoreConfig
	Database      DatabaseConfig
	Attachments   AttachmentsConfig
	ObjectStorage ObjectStorageConfig
	Chat          ChatConfig
	Intake        IntakeConfig
	ReCAPTCHA     ReCAPTCHAConfig
	EventTriggers EventTriggersConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

type PracticeConfig struct {
	// ProfilePath overrides the embedded practice profile when set
	ProfilePath string
}

type StoreConfig struct {
	Backend string
	DataDir string
}

type DatabaseConfig struct {
	URL        string
	MaxConns   int32
	MinConns   int32
	CACertPath string
}

type AttachmentsConfig struct {
	Backend    string
	UploadsDir string
}

type ObjectStorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
	Prefix          string
	UsePathStyle    bool
}

type ChatConfig struct {
	APIKey           string
	Model            string
	BaseURL          string
	MaxTokens        int
	TimeoutSeconds   int
	InterceptBooking bool
}

// Timeout returns the upstream call timeout
func (c ChatConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type IntakeConfig struct {
	MaxFiles              int
	MaxFileSizeBytes      int64
	IdempotencyTTLSeconds int
}

// IdempotencyTTL returns how long a submission key is remembered
func (c IntakeConfig) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLSeconds) * time.Second
}

type ReCAPTCHAConfig struct {
	SecretKey string
}

type EventTriggersConfig struct {
	AppointmentCreatedTriggerURL string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("UPLOADS_DIR", "uploads")
	v.SetDefault("APPOINTMENT_STORE", StoreFile)
	v.SetDefault("ATTACHMENT_BACKEND", AttachmentsLocal)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "appointments")
	v.SetDefault("S3_USE_PATH_STYLE", true)
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022")
	v.SetDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com")
	v.SetDefault("ANTHROPIC_MAX_TOKENS", 1024)
	v.SetDefault("CHAT_TIMEOUT_SECONDS", 30)
	v.SetDefault("CHAT_INTERCEPT_BOOKING", true)
	v.SetDefault("INTAKE_MAX_FILES", 5)
	v.SetDefault("INTAKE_MAX_FILE_SIZE_BYTES", 10<<20)
	v.SetDefault("IDEMPOTENCY_TTL_SECONDS", 86400)
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "alloy:4318") // OTLP over HTTP
	v.SetDefault("O11Y_BE_SERVICE_NAME", "clinic-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "goldhabermd")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "clinic-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,inuse_space,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Practice: PracticeConfig{
			ProfilePath: v.GetString("PRACTICE_PROFILE_PATH"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(v.GetString("APPOINTMENT_STORE")),
			DataDir: v.GetString("DATA_DIR"),
		},
		Database: DatabaseConfig{
			URL:        v.GetString("DATABASE_URL"),
			MaxConns:   v.GetInt32("DB_MAX_CONNS"),
			MinConns:   v.GetInt32("DB_MIN_CONNS"),
			CACertPath: v.GetString("DATABASE_CA_CERT_PATH"),
		},
		Attachments: AttachmentsConfig{
			Backend:    strings.ToLower(v.GetString("ATTACHMENT_BACKEND")),
			UploadsDir: v.GetString("UPLOADS_DIR"),
		},
		ObjectStorage: ObjectStorageConfig{
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("S3_BUCKET_NAME"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			Region:          v.GetString("S3_REGION"),
			Prefix:          v.GetString("S3_PREFIX"),
			UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
		},
		Chat: ChatConfig{
			APIKey:           v.GetString("ANTHROPIC_API_KEY"),
			Model:            v.GetString("ANTHROPIC_MODEL"),
			BaseURL:          v.GetString("ANTHROPIC_BASE_URL"),
			MaxTokens:        v.GetInt("ANTHROPIC_MAX_TOKENS"),
			TimeoutSeconds:   v.GetInt("CHAT_TIMEOUT_SECONDS"),
			InterceptBooking: v.GetBool("CHAT_INTERCEPT_BOOKING"),
		},
		Intake: IntakeConfig{
			MaxFiles:              v.GetInt("INTAKE_MAX_FILES"),
			MaxFileSizeBytes:      v.GetInt64("INTAKE_MAX_FILE_SIZE_BYTES"),
			IdempotencyTTLSeconds: v.GetInt("IDEMPOTENCY_TTL_SECONDS"),
		},
		ReCAPTCHA: ReCAPTCHAConfig{
			SecretKey: v.GetString("RECAPTCHA_SECRET_KEY"),
		},
		EventTriggers: EventTriggersConfig{
			AppointmentCreatedTriggerURL: v.GetString("APPOINTMENT_CREATED_TRIGGER_URL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	// Server configuration
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	// Appointment record store
	switch c.Store.Backend {
	case StoreFile:
		if c.Store.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the file appointment store")
		}
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres appointment store")
		}
	default:
		return fmt.Errorf("APPOINTMENT_STORE must be %q or %q, got %q", StoreFile, StorePostgres, c.Store.Backend)
	}

	// Attachment storage
	switch c.Attachments.Backend {
	case AttachmentsLocal:
		if c.Attachments.UploadsDir == "" {
			return fmt.Errorf("UPLOADS_DIR is required for local attachment storage")
		}
	case AttachmentsS3:
		if c.ObjectStorage.BucketName == "" {
			return fmt.Errorf("S3_BUCKET_NAME is required for s3 attachment storage")
		}
	default:
		return fmt.Errorf("ATTACHMENT_BACKEND must be %q or %q, got %q", AttachmentsLocal, AttachmentsS3, c.Attachments.Backend)
	}

	if c.Chat.TimeoutSeconds <= 0 {
		return fmt.Errorf("CHAT_TIMEOUT_SECONDS must be positive")
	}

	if c.Intake.MaxFiles <= 0 {
		return fmt.Errorf("INTAKE_MAX_FILES must be positive")
	}
	if c.Intake.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("INTAKE_MAX_FILE_SIZE_BYTES must be positive")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}

// splitList parses a comma-separated value, dropping blanks
func splitList(s string) []string {
	items := []string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
