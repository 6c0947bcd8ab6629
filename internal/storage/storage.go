// Package storage keeps the files patients attach to an appointment request,
// grouped per appointment.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
)

// AttachmentStore saves and serves appointment attachments
type AttachmentStore interface {
	// Prepare creates the location for one appointment's files
	Prepare(ctx context.Context, appointmentID string) error

	// Save writes r under a "<unix millis>-<sanitised name>" name and returns it
	Save(ctx context.Context, appointmentID, originalName string, r io.Reader, contentType string) (string, error)

	// Open returns a stored attachment. Unknown names yield ErrNotFound.
	Open(ctx context.Context, appointmentID, storedName string) (io.ReadCloser, error)
}

// validSegment rejects anything that could address outside one directory level
func validSegment(field, s string) error {
	if s == "" || s == "." || s == ".." ||
		strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) ||
		!filepath.IsLocal(s) {
		return apperrors.InvalidInputError(field, "invalid path segment")
	}
	return nil
}
