package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goldhabermd/clinic-api/internal/models"
	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// uniqueViolation is the SQLSTATE for a primary key clash
const uniqueViolation = "23505"

const appointmentColumns = `id::text, first_name, last_name, email, phone, id_number,
	service, date, time, notes, files, status, created_at`

// InsertAppointment stores a new appointment row
func (c *Client) InsertAppointment(ctx context.Context, a *models.Appointment) error {
	start := time.Now()
	operation := "insertAppointment"

	files := a.Files
	if files == nil {
		files = []string{}
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO appointments (id, first_name, last_name, email, phone, id_number,
			service, date, time, notes, files, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.FirstName, a.LastName, a.Email, a.Phone, a.IDNumber,
		a.Service, a.Date, a.Time, a.Notes, files, a.Status, a.CreatedAt,
	)
	duration := metrics.MeasureDuration(start)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			recordMetrics(operation, "conflict", duration)
			return apperrors.ConflictError("appointment", a.ID)
		}
		recordMetrics(operation, "error", duration)
		logger.Error("Failed to insert appointment",
			zap.String("appointment_id", a.ID),
			zap.Error(err))
		return apperrors.StorageError("insert appointment", err)
	}

	recordMetrics(operation, "success", duration)
	return nil
}

// ListAppointments returns every appointment in submission order
func (c *Client) ListAppointments(ctx context.Context) ([]*models.Appointment, error) {
	start := time.Now()
	operation := "listAppointments"

	rows, err := c.pool.Query(ctx,
		"SELECT "+appointmentColumns+" FROM appointments ORDER BY created_at, seq")
	if err != nil {
		recordMetrics(operation, "error", metrics.MeasureDuration(start))
		return nil, apperrors.StorageError("list appointments", err)
	}
	defer rows.Close()

	appts := []*models.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			recordMetrics(operation, "error", metrics.MeasureDuration(start))
			return nil, apperrors.StorageError("scan appointment", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		recordMetrics(operation, "error", metrics.MeasureDuration(start))
		return nil, apperrors.StorageError("list appointments", err)
	}

	recordMetrics(operation, "success", metrics.MeasureDuration(start))
	metrics.StoredAppointments.Set(float64(len(appts)))
	return appts, nil
}

// GetAppointment fetches one appointment by id
func (c *Client) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	start := time.Now()
	operation := "getAppointment"

	row := c.pool.QueryRow(ctx,
		"SELECT "+appointmentColumns+" FROM appointments WHERE id = $1", id)
	a, err := scanAppointment(row)
	duration := metrics.MeasureDuration(start)

	if errors.Is(err, pgx.ErrNoRows) {
		recordMetrics(operation, "not_found", duration)
		return nil, apperrors.NotFoundError("appointment " + id)
	}
	if err != nil {
		recordMetrics(operation, "error", duration)
		return nil, apperrors.StorageError("get appointment", err)
	}

	recordMetrics(operation, "success", duration)
	return a, nil
}

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.IDNumber,
		&a.Service, &a.Date, &a.Time, &a.Notes, &a.Files, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	if a.Files == nil {
		a.Files = []string{}
	}
	return &a, nil
}
