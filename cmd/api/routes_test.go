package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goldhabermd/clinic-api/config"
	"github.com/goldhabermd/clinic-api/internal/handlers"
	"github.com/goldhabermd/clinic-api/internal/practice"
	"github.com/goldhabermd/clinic-api/internal/services"
	"github.com/goldhabermd/clinic-api/internal/storage"
	"github.com/goldhabermd/clinic-api/pkg/anthropic"
	"github.com/goldhabermd/clinic-api/pkg/httpclient"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if err := logger.Initialize(logger.Config{Level: "error", Environment: "development"}); err != nil {
		panic(err)
	}
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode, AppEnv: "development"},
		Store:  config.StoreConfig{Backend: config.StoreFile, DataDir: filepath.Join(dir, "data")},
		Attachments: config.AttachmentsConfig{
			Backend:    config.AttachmentsLocal,
			UploadsDir: filepath.Join(dir, "uploads"),
		},
		Chat:   config.ChatConfig{TimeoutSeconds: 1, InterceptBooking: true},
		Intake: config.IntakeConfig{MaxFiles: 5, MaxFileSizeBytes: 10 << 20, IdempotencyTTLSeconds: 60},
	}

	store, ready, err := openAppointmentStore(t.Context(), cfg)
	require.NoError(t, err)
	assert.Nil(t, ready)
	t.Cleanup(func() { _ = store.Close() })

	attachments, err := openAttachmentStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, attachments)

	profile := practice.Default()
	llm := anthropic.NewClient(anthropic.Config{}, httpclient.NewClientWithTimeout(cfg.Chat.Timeout()))
	logs := handlers.NewLogsHandler(filepath.Join(dir, "logs"))
	t.Cleanup(func() { _ = logs.Close() })

	limiters := newRateLimiters()
	t.Cleanup(limiters.stop)

	return newRouter(cfg, routeHandlers{
		appointments: handlers.NewAppointmentHandler(services.NewAppointmentService(store, attachments, profile, cfg, httpclient.NewStandardClient())),
		chat:         handlers.NewChatHandler(services.NewChatService(llm, profile, cfg)),
		practice:     handlers.NewPracticeHandler(profile),
		health:       handlers.NewHealthHandler(ready),
		logs:         logs,
	}, limiters)
}

func TestRouter_Routes(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/healthcheck", "", http.StatusOK},
		{http.MethodGet, "/api/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/practice", "", http.StatusOK},
		{http.MethodGet, "/api/v1/services", "", http.StatusOK},
		{http.MethodGet, "/api/v1/conditions", "", http.StatusOK},
		{http.MethodGet, "/api/v1/appointments", "", http.StatusOK},
		{http.MethodGet, "/api/v1/appointments/5b0e6f5c-3f3e-4a8e-9a51-6c1d8c2f0a11", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/chat", `{"newMessage":"I need an appointment"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/chat", `{"newMessage":""}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_ChatBodyLimit(t *testing.T) {
	router := testRouter(t)

	body := `{"newMessage":"hi","messages":[{"role":"user","content":"` + strings.Repeat("x", chatBodyLimit) + `"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_CORSAllowsIdempotencyKey(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
