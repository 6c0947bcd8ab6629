package storage

import (
	"context"
	"io"
	"time"

	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/filename"
	"github.com/goldhabermd/clinic-api/pkg/objectstore"
	"github.com/goldhabermd/clinic-api/pkg/retry"
)

// ObjectClient is the part of objectstore.Client used by S3Store
type ObjectClient interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// S3Store keeps attachments in an S3-compatible bucket under
// <prefix>/<appointment id>/<stored name>
type S3Store struct {
	client   ObjectClient
	prefix   string
	retryCfg retry.Config
	now      func() time.Time
}

// NewS3Store creates an object storage backed attachment store
func NewS3Store(client ObjectClient, prefix string) *S3Store {
	return &S3Store{
		client:   client,
		prefix:   prefix,
		retryCfg: retry.StorageConfig(),
		now:      time.Now,
	}
}

// WithClock replaces the time source used for stored names (tests)
func (s *S3Store) WithClock(now func() time.Time) *S3Store {
	s.now = now
	return s
}

// WithRetryConfig overrides upload retry behaviour
func (s *S3Store) WithRetryConfig(cfg retry.Config) *S3Store {
	s.retryCfg = cfg
	return s
}

// Prepare is a no-op: object keys need no parent
func (s *S3Store) Prepare(ctx context.Context, appointmentID string) error {
	return validSegment("appointmentId", appointmentID)
}

func (s *S3Store) Save(ctx context.Context, appointmentID, originalName string, r io.Reader, contentType string) (string, error) {
	if err := validSegment("appointmentId", appointmentID); err != nil {
		return "", err
	}

	// Buffer once so every retry uploads the same bytes
	data, err := io.ReadAll(r)
	if err != nil {
		return "", apperrors.StorageError("read attachment", err)
	}

	stored := filename.Stored(s.now(), originalName)
	key := objectstore.Key(s.prefix, appointmentID, stored)

	err = retry.Do(ctx, s.retryCfg, "attachment upload", func() error {
		return s.client.Put(ctx, key, data, contentType)
	})
	if err != nil {
		return "", apperrors.StorageError("upload attachment", err)
	}
	return stored, nil
}

func (s *S3Store) Open(ctx context.Context, appointmentID, storedName string) (io.ReadCloser, error) {
	if err := validSegment("appointmentId", appointmentID); err != nil {
		return nil, err
	}
	if err := validSegment("file", storedName); err != nil {
		return nil, err
	}
	return s.client.Get(ctx, objectstore.Key(s.prefix, appointmentID, storedName))
}

var _ AttachmentStore = (*S3Store)(nil)
