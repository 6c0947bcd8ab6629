package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/goldhabermd/clinic-api/config"
	"github.com/goldhabermd/clinic-api/internal/handlers"
	"github.com/goldhabermd/clinic-api/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
)

const (
	chatBodyLimit = 100 * 1024
	logsBodyLimit = 1 * 1024 * 1024
	// multipart framing and the text fields of the booking form
	bookingFormOverhead = 1 * 1024 * 1024
)

type routeHandlers struct {
	appointments *handlers.AppointmentHandler
	chat         *handlers.ChatHandler
	practice     *handlers.PracticeHandler
	health       *handlers.HealthHandler
	logs         *handlers.LogsHandler
}

type rateLimiters struct {
	general *middleware.RateLimiter
	booking *middleware.RateLimiter
	chat    *middleware.RateLimiter
}

func newRateLimiters() *rateLimiters {
	return &rateLimiters{
		general: middleware.NewRateLimiter(100, 200),                     // 100 req/sec, burst of 200
		booking: middleware.NewRateLimiter(rate.Every(12*time.Second), 5), // 5 req/min, burst of 5
		chat:    middleware.NewRateLimiter(1, 10),                         // 1 req/sec, burst of 10
	}
}

func (l *rateLimiters) stop() {
	l.general.Stop()
	l.booking.Stop()
	l.chat.Stop()
}

// newRouter builds the gin engine with global middleware and every route
func newRouter(cfg *config.Config, h routeHandlers, limiters *rateLimiters) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)
	handlers.RegisterWireFieldNames()

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware("/api/healthcheck", "/api/metrics"))
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", handlers.IdempotencyKeyHeader, "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Operational endpoints (not versioned)
	api := router.Group("/api")
	api.GET("/healthcheck", limiters.general.Middleware(), h.health.Healthcheck)
	api.GET("/metrics", limiters.general.Middleware(), gin.WrapH(promhttp.Handler()))

	bookingBodyLimit := int64(cfg.Intake.MaxFiles)*cfg.Intake.MaxFileSizeBytes + bookingFormOverhead

	v1 := router.Group("/api/v1")
	v1.POST("/appointments", limiters.booking.Middleware(), middleware.BodySizeLimitMiddleware(bookingBodyLimit), h.appointments.BookAppointment)
	v1.GET("/appointments", limiters.general.Middleware(), h.appointments.ListAppointments)
	v1.GET("/appointments/:id", limiters.general.Middleware(), h.appointments.GetAppointment)
	v1.GET("/appointments/:id/files/:name", limiters.general.Middleware(), h.appointments.GetAppointmentFile)

	v1.POST("/chat", limiters.chat.Middleware(), middleware.BodySizeLimitMiddleware(chatBodyLimit), h.chat.Chat)

	v1.GET("/practice", limiters.general.Middleware(), h.practice.GetPractice)
	v1.GET("/services", limiters.general.Middleware(), h.practice.GetServices)
	v1.GET("/conditions", limiters.general.Middleware(), h.practice.GetConditions)
	v1.GET("/conditions/:id", limiters.general.Middleware(), h.practice.GetCondition)

	v1.POST("/logs", limiters.general.Middleware(), middleware.BodySizeLimitMiddleware(logsBodyLimit), h.logs.ReceiveFrontendLogs)

	return router
}
