package services_test

import (
	"context"
	"io"

	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/pkg/anthropic"
	"github.com/stretchr/testify/mock"
)

// MockAppointmentStore is a mock implementation of repository.AppointmentStore
type MockAppointmentStore struct {
	mock.Mock
}

func (m *MockAppointmentStore) Append(ctx context.Context, appt *models.Appointment) error {
	args := m.Called(ctx, appt)
	return args.Error(0)
}

func (m *MockAppointmentStore) List(ctx context.Context) ([]*models.Appointment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAttachmentStore is a mock implementation of storage.AttachmentStore
type MockAttachmentStore struct {
	mock.Mock
}

func (m *MockAttachmentStore) Prepare(ctx context.Context, appointmentID string) error {
	args := m.Called(ctx, appointmentID)
	return args.Error(0)
}

func (m *MockAttachmentStore) Save(ctx context.Context, appointmentID, originalName string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, appointmentID, originalName, r, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockAttachmentStore) Open(ctx context.Context, appointmentID, storedName string) (io.ReadCloser, error) {
	args := m.Called(ctx, appointmentID, storedName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// MockCompletionClient is a mock implementation of services.CompletionClient
type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, system string, messages []anthropic.Message) (string, error) {
	args := m.Called(ctx, system, messages)
	return args.String(0), args.Error(1)
}
