package repository

import (
	"context"

	"github.com/goldhabermd/clinic-api/internal/models"
)

// AppointmentStore persists appointment records.
// Implementations must be safe for concurrent use: N concurrent Appends with
// distinct ids always leave N new records.
type AppointmentStore interface {
	// Append adds a record. A duplicate id yields ErrConflict.
	Append(ctx context.Context, appt *models.Appointment) error

	// List returns every record in insertion order, never nil
	List(ctx context.Context) ([]*models.Appointment, error)

	// Get returns one record by id or ErrNotFound
	Get(ctx context.Context, id string) (*models.Appointment, error)

	// Close releases the store's resources
	Close() error
}
