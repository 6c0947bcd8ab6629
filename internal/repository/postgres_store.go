package repository

import (
	"context"

	"github.com/goldhabermd/clinic-api/internal/database/postgres"
	"github.com/goldhabermd/clinic-api/internal/models"
)

// PostgresStore implements AppointmentStore on the appointments table.
// The primary key rejects duplicate ids and the database serialises inserts.
type PostgresStore struct {
	client *postgres.Client
}

// NewPostgresStore creates a new PostgreSQL appointment store
func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) Append(ctx context.Context, appt *models.Appointment) error {
	return s.client.InsertAppointment(ctx, appt)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Appointment, error) {
	return s.client.ListAppointments(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	return s.client.GetAppointment(ctx, id)
}

func (s *PostgresStore) Close() error {
	s.client.Close()
	return nil
}

// Ensure PostgresStore implements AppointmentStore
var _ AppointmentStore = (*PostgresStore)(nil)
