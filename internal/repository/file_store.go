package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goldhabermd/clinic-api/internal/models"
	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"go.uber.org/zap"
)

// AppointmentsFileName is the record file inside the data directory
const AppointmentsFileName = "appointments.json"

// ErrStoreClosed is returned for calls made after Close
var ErrStoreClosed = errors.New("appointment store closed")

type fileOp int

const (
	opAppend fileOp = iota
	opList
	opGet
)

type fileRequest struct {
	op    fileOp
	appt  *models.Appointment
	id    string
	reply chan fileResult
}

type fileResult struct {
	appts []*models.Appointment
	appt  *models.Appointment
	err   error
}

// FileStore keeps all appointments in one pretty-printed JSON array.
//
// A single goroutine owns both the file and its in-memory copy; every call is
// a message to that goroutine, so the read-modify-write cycle is serialised.
// Each write goes to a temp file that is renamed over the old one, so the file
// on disk is always a complete array.
type FileStore struct {
	path     string
	requests chan fileRequest
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// owned by the run goroutine
	records []*models.Appointment
	index   map[string]int
}

// NewFileStore opens (or creates) <dataDir>/appointments.json and starts the
// writer goroutine. A missing file is an empty store; a corrupt one is an error.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, apperrors.StorageError("create data dir", err)
	}

	s := &FileStore{
		path:     filepath.Join(dataDir, AppointmentsFileName),
		requests: make(chan fileRequest),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		index:    make(map[string]int),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	logger.Info("File appointment store opened",
		zap.String("path", s.path),
		zap.Int("records", len(s.records)))
	metrics.StoredAppointments.Set(float64(len(s.records)))

	go s.run()
	return s, nil
}

// Path returns the location of the record file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Append(ctx context.Context, appt *models.Appointment) error {
	if appt == nil || appt.ID == "" {
		return apperrors.InvalidInputError("appointment", "id is required")
	}
	_, err := s.call(ctx, "append", fileRequest{op: opAppend, appt: cloneAppointment(appt)})
	return err
}

func (s *FileStore) List(ctx context.Context) ([]*models.Appointment, error) {
	res, err := s.call(ctx, "list", fileRequest{op: opList})
	if err != nil {
		return nil, err
	}
	return res.appts, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	res, err := s.call(ctx, "get", fileRequest{op: opGet, id: id})
	if err != nil {
		return nil, err
	}
	return res.appt, nil
}

// Close stops the writer goroutine. Calls made afterwards return ErrStoreClosed.
func (s *FileStore) Close() error {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
	return nil
}

func (s *FileStore) call(ctx context.Context, operation string, req fileRequest) (fileResult, error) {
	if err := ctx.Err(); err != nil {
		return fileResult{}, err
	}
	start := time.Now()
	req.reply = make(chan fileResult, 1)

	select {
	case s.requests <- req:
	case <-s.quit:
		return fileResult{}, ErrStoreClosed
	case <-ctx.Done():
		return fileResult{}, ctx.Err()
	}

	// The writer took the request and always replies, so the outcome is
	// reported even when ctx ends meanwhile.
	res := <-req.reply
	status := "success"
	if res.err != nil {
		status = "error"
	}
	recordStoreMetrics("file", operation, status, metrics.MeasureDuration(start))
	return res, res.err
}

func (s *FileStore) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case req := <-s.requests:
			req.reply <- s.handle(req)
		}
	}
}

func (s *FileStore) handle(req fileRequest) fileResult {
	switch req.op {
	case opAppend:
		return fileResult{err: s.appendRecord(req.appt)}
	case opList:
		out := make([]*models.Appointment, len(s.records))
		for i, r := range s.records {
			out[i] = cloneAppointment(r)
		}
		return fileResult{appts: out}
	case opGet:
		i, ok := s.index[req.id]
		if !ok {
			return fileResult{err: apperrors.NotFoundError("appointment " + req.id)}
		}
		return fileResult{appt: cloneAppointment(s.records[i])}
	default:
		return fileResult{err: apperrors.InternalError(fmt.Sprintf("unknown store operation %d", req.op))}
	}
}

func (s *FileStore) appendRecord(appt *models.Appointment) error {
	if _, exists := s.index[appt.ID]; exists {
		return apperrors.ConflictError("appointment", appt.ID)
	}

	s.records = append(s.records, appt)
	if err := s.persist(); err != nil {
		// Keep memory consistent with what is on disk
		s.records = s.records[:len(s.records)-1]
		return err
	}
	s.index[appt.ID] = len(s.records) - 1
	metrics.StoredAppointments.Set(float64(len(s.records)))
	return nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.StorageError("read appointments", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []*models.Appointment
	if err := json.Unmarshal(data, &records); err != nil {
		return apperrors.StorageError("decode appointments", err)
	}

	for i, r := range records {
		if r == nil {
			return apperrors.StorageError("decode appointments", fmt.Errorf("null record at position %d", i))
		}
		if _, dup := s.index[r.ID]; dup {
			logger.Warn("Duplicate appointment id in record file", zap.String("appointment_id", r.ID))
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

// persist rewrites the whole array through a temp file and rename
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return apperrors.StorageError("encode appointments", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".appointments-*.json.tmp")
	if err != nil {
		return apperrors.StorageError("create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.StorageError("write appointments", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.StorageError("sync appointments", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.StorageError("close appointments", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperrors.StorageError("replace appointments", err)
	}
	return nil
}

func cloneAppointment(a *models.Appointment) *models.Appointment {
	c := *a
	c.Files = append(make([]string, 0, len(a.Files)), a.Files...)
	return &c
}

func recordStoreMetrics(backend, operation, status string, duration float64) {
	metrics.StoreOperationDuration.WithLabelValues(backend, operation, status).Observe(duration)
	metrics.StoreOperationTotal.WithLabelValues(backend, operation, status).Inc()
}

var _ AppointmentStore = (*FileStore)(nil)
