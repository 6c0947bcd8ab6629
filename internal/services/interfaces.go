package services

import (
	"context"
	"io"

	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/pkg/anthropic"
)

// AppointmentServiceInterface defines the interface for appointment intake operations
type AppointmentServiceInterface interface {
	Book(ctx context.Context, req *models.BookAppointmentRequest, attachments []models.Attachment, idempotencyKey string) (*models.BookAppointmentResponse, error)
	List(ctx context.Context) ([]*models.Appointment, error)
	Get(ctx context.Context, id string) (*models.Appointment, error)
	OpenAttachment(ctx context.Context, id, storedName string) (io.ReadCloser, error)
}

// ChatServiceInterface defines the interface for the chat relay
type ChatServiceInterface interface {
	Reply(ctx context.Context, req *models.ChatRequest) *models.ChatResponse
}

// CompletionClient is a language model that answers a transcript
type CompletionClient interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message) (string, error)
}

// Ensure services implement their interfaces
var (
	_ AppointmentServiceInterface = (*AppointmentService)(nil)
	_ ChatServiceInterface        = (*ChatService)(nil)
	_ CompletionClient            = (*anthropic.Client)(nil)
)
