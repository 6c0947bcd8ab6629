package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/filename"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"go.uber.org/zap"
)

const localBackend = "local"

// maxNameAttempts bounds the search for a free name when two files with the
// same name land in the same millisecond
const maxNameAttempts = 1000

// LocalStore writes attachments to <root>/<appointment id>/<stored name>
type LocalStore struct {
	root string
	now  func() time.Time
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.StorageError("create uploads dir", err)
	}
	return &LocalStore{root: root, now: time.Now}, nil
}

// WithClock replaces the time source used for stored names (tests)
func (s *LocalStore) WithClock(now func() time.Time) *LocalStore {
	s.now = now
	return s
}

// Root returns the uploads directory
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Prepare(ctx context.Context, appointmentID string) error {
	if err := validSegment("appointmentId", appointmentID); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.root, appointmentID), 0o755); err != nil {
		return apperrors.StorageError("create appointment dir", err)
	}
	return nil
}

// Save never overwrites: if the timestamped name is taken the timestamp is
// bumped by a millisecond until a free name is found.
func (s *LocalStore) Save(ctx context.Context, appointmentID, originalName string, r io.Reader, contentType string) (string, error) {
	start := time.Now()
	operation := "save"

	if err := validSegment("appointmentId", appointmentID); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, appointmentID)

	at := s.now()
	var (
		f      *os.File
		stored string
		err    error
	)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		stored = filename.Stored(at.Add(time.Duration(attempt)*time.Millisecond), originalName)
		f, err = os.OpenFile(filepath.Join(dir, stored), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		observe(localBackend, operation, "error", start)
		return "", apperrors.StorageError("create attachment", err)
	}

	written, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		observe(localBackend, operation, "error", start)
		return "", apperrors.StorageError("write attachment", err)
	}

	observe(localBackend, operation, "success", start)
	metrics.StoredAttachmentBytes.Add(float64(written))
	logger.Debug("Attachment stored",
		zap.String("appointment_id", appointmentID),
		zap.String("file", stored),
		zap.String("content_type", contentType),
		zap.Int64("size_bytes", written))

	return stored, nil
}

func (s *LocalStore) Open(ctx context.Context, appointmentID, storedName string) (io.ReadCloser, error) {
	start := time.Now()
	operation := "open"

	if err := validSegment("appointmentId", appointmentID); err != nil {
		return nil, err
	}
	if err := validSegment("file", storedName); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.root, appointmentID, storedName))
	if errors.Is(err, os.ErrNotExist) {
		observe(localBackend, operation, "not_found", start)
		return nil, apperrors.NotFoundError(fmt.Sprintf("attachment %s/%s", appointmentID, storedName))
	}
	if err != nil {
		observe(localBackend, operation, "error", start)
		return nil, apperrors.StorageError("open attachment", err)
	}

	observe(localBackend, operation, "success", start)
	return f, nil
}

func observe(backend, operation, status string, start time.Time) {
	duration := metrics.MeasureDuration(start)
	metrics.StorageRequestDuration.WithLabelValues(backend, operation, status).Observe(duration)
	metrics.StorageRequestTotal.WithLabelValues(backend, operation, status).Inc()
}

var _ AttachmentStore = (*LocalStore)(nil)
