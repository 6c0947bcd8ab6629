package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterWireFieldNames()

	if err := logger.Initialize(logger.Config{Level: "error", Environment: "development"}); err != nil {
		panic(err)
	}
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

type filePart struct {
	field string
	name  string
	data  []byte
}

func bookingForm() map[string]string {
	return map[string]string{
		"firstName": "Dana",
		"lastName":  "Levi",
		"email":     "d@x.com",
		"phone":     "0501234567",
		"idNumber":  "123456789",
		"service":   "general-consultation",
		"date":      "2025-03-01",
		"time":      "10:00",
	}
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// MockAppointmentService is a mock implementation of services.AppointmentServiceInterface
type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) Book(ctx context.Context, req *models.BookAppointmentRequest, attachments []models.Attachment, idempotencyKey string) (*models.BookAppointmentResponse, error) {
	args := m.Called(ctx, req, attachments, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookAppointmentResponse), args.Error(1)
}

func (m *MockAppointmentService) List(ctx context.Context) ([]*models.Appointment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) OpenAttachment(ctx context.Context, id, storedName string) (io.ReadCloser, error) {
	args := m.Called(ctx, id, storedName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// MockChatService is a mock implementation of services.ChatServiceInterface
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Reply(ctx context.Context, req *models.ChatRequest) *models.ChatResponse {
	args := m.Called(ctx, req)
	return args.Get(0).(*models.ChatResponse)
}
