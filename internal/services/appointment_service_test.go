package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goldhabermd/clinic-api/config"
	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/internal/practice"
	"github.com/goldhabermd/clinic-api/internal/repository"
	"github.com/goldhabermd/clinic-api/internal/services"
	"github.com/goldhabermd/clinic-api/internal/storage"
	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/httpclient"
	"github.com/goldhabermd/clinic-api/pkg/recaptcha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	service     *services.AppointmentService
	store       *repository.FileStore
	attachments *storage.LocalStore
}

func newBookingFixture(t *testing.T, cfg *config.Config) *bookingFixture {
	t.Helper()
	dir := t.TempDir()

	store, err := repository.NewFileStore(filepath.Join(dir, "data"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	attachments, err := storage.NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	svc := services.NewAppointmentService(store, attachments, practice.Default(), cfg, httpclient.NewStandardClient())
	return &bookingFixture{service: svc, store: store, attachments: attachments}
}

func TestAppointmentService_Book_NoFiles(t *testing.T) {
	f := newBookingFixture(t, testConfig())
	ctx := context.Background()

	resp, err := f.service.Book(ctx, danaRequest(), nil, "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, services.BookingSuccessMessage, resp.Message)
	assert.NotEmpty(t, resp.AppointmentID)

	appts, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)

	appt := appts[0]
	assert.Equal(t, resp.AppointmentID, appt.ID)
	assert.Equal(t, "Dana", appt.FirstName)
	assert.Equal(t, "general-consultation", appt.Service)
	assert.Equal(t, models.AppointmentStatusPending, appt.Status)
	assert.NotNil(t, appt.Files)
	assert.Empty(t, appt.Files)
	assert.False(t, appt.CreatedAt.IsZero())
}

func TestAppointmentService_Book_WithFiles(t *testing.T) {
	f := newBookingFixture(t, testConfig())
	ctx := context.Background()

	files := []models.Attachment{
		memAttachment("file0", "blood-test.pdf", pdfBytes),
		memAttachment("file1", "empty.pdf", nil),
		memAttachment("file2", "rash.png", pngBytes),
		memAttachment("file3", "x-ray.jpg", jpegBytes),
	}

	resp, err := f.service.Book(ctx, danaRequest(), files, "")
	require.NoError(t, err)
	require.True(t, resp.Success)

	appt, err := f.service.Get(ctx, resp.AppointmentID)
	require.NoError(t, err)
	require.Len(t, appt.Files, 3, "empty parts are skipped")
	assert.True(t, strings.HasSuffix(appt.Files[0], "-blood-test.pdf"))
	assert.True(t, strings.HasSuffix(appt.Files[1], "-rash.png"))
	assert.True(t, strings.HasSuffix(appt.Files[2], "-x-ray.jpg"))

	for i, want := range [][]byte{pdfBytes, pngBytes, jpegBytes} {
		rc, err := f.service.OpenAttachment(ctx, appt.ID, appt.Files[i])
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAppointmentService_Book_Validation(t *testing.T) {
	tooBig := memAttachment("file0", "huge.pdf", pdfBytes)
	tooBig.Size = 10<<20 + 1

	sixFiles := make([]models.Attachment, 6)
	for i := range sixFiles {
		sixFiles[i] = memAttachment(fmt.Sprintf("file%d", i), "a.pdf", pdfBytes)
	}

	unreadable := memAttachment("file0", "a.pdf", pdfBytes)
	unreadable.Open = func() (io.ReadCloser, error) { return nil, errors.New("gone") }

	tests := []struct {
		name        string
		mutate      func(r *models.BookAppointmentRequest)
		attachments []models.Attachment
		field       string
	}{
		{
			name:   "unknown service",
			mutate: func(r *models.BookAppointmentRequest) { r.Service = "cosmetic-surgery" },
			field:  "service",
		},
		{
			name:        "too many files",
			attachments: sixFiles,
			field:       "files",
		},
		{
			name:        "file too large",
			attachments: []models.Attachment{tooBig},
			field:       "file0",
		},
		{
			name:        "disallowed type",
			attachments: []models.Attachment{memAttachment("file0", "notes.pdf", []byte("just some text"))},
			field:       "file0",
		},
		{
			name:        "unreadable file",
			attachments: []models.Attachment{unreadable},
			field:       "file0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t, testConfig())
			req := danaRequest()
			if tt.mutate != nil {
				tt.mutate(req)
			}

			resp, err := f.service.Book(context.Background(), req, tt.attachments, "")
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.field)

			appts, err := f.service.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, appts)
		})
	}
}

func TestAppointmentService_Book_FiveEmptyPlusFiveFilesIsAllowed(t *testing.T) {
	f := newBookingFixture(t, testConfig())

	var files []models.Attachment
	for i := 0; i < 5; i++ {
		files = append(files, memAttachment(fmt.Sprintf("file%d", i), "a.pdf", pdfBytes))
		files = append(files, memAttachment(fmt.Sprintf("empty%d", i), "b.pdf", nil))
	}

	resp, err := f.service.Book(context.Background(), danaRequest(), files, "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestAppointmentService_Book_StoreFailure(t *testing.T) {
	store := new(MockAppointmentStore)
	attachments := new(MockAttachmentStore)
	svc := services.NewAppointmentService(store, attachments, practice.Default(), testConfig(), httpclient.NewStandardClient())

	attachments.On("Prepare", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()
	attachments.On("Save", mock.Anything, mock.AnythingOfType("string"), "scan.pdf", mock.Anything, "application/pdf").
		Return("1700000000000-scan.pdf", nil).Once()
	store.On("Append", mock.Anything, mock.AnythingOfType("*models.Appointment")).
		Return(apperrors.StorageError("write appointments", errors.New("disk full"))).Once()

	resp, err := svc.Book(context.Background(), danaRequest(),
		[]models.Attachment{memAttachment("file0", "scan.pdf", pdfBytes)}, "")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Equal(t, services.BookingFailureMessage, resp.Error)
	assert.Empty(t, resp.AppointmentID)

	store.AssertExpectations(t)
	attachments.AssertExpectations(t)
}

func TestAppointmentService_Book_PrepareFailure(t *testing.T) {
	store := new(MockAppointmentStore)
	attachments := new(MockAttachmentStore)
	svc := services.NewAppointmentService(store, attachments, practice.Default(), testConfig(), httpclient.NewStandardClient())

	attachments.On("Prepare", mock.Anything, mock.AnythingOfType("string")).
		Return(apperrors.StorageError("create appointment dir", errors.New("read-only fs"))).Once()

	resp, err := svc.Book(context.Background(), danaRequest(), nil, "")

	require.Error(t, err)
	assert.False(t, resp.Success)
	store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAppointmentService_Book_IdempotentReplay(t *testing.T) {
	f := newBookingFixture(t, testConfig())
	ctx := context.Background()

	first, err := f.service.Book(ctx, danaRequest(), nil, "form-7f3a")
	require.NoError(t, err)
	second, err := f.service.Book(ctx, danaRequest(), nil, "form-7f3a")
	require.NoError(t, err)
	assert.Equal(t, first.AppointmentID, second.AppointmentID)

	third, err := f.service.Book(ctx, danaRequest(), nil, "another-key")
	require.NoError(t, err)
	assert.NotEqual(t, first.AppointmentID, third.AppointmentID)

	appts, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 2)
}

func TestAppointmentService_Book_Concurrent(t *testing.T) {
	f := newBookingFixture(t, testConfig())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.service.Book(ctx, danaRequest(),
				[]models.Attachment{memAttachment("file0", "scan.pdf", pdfBytes)}, "")
			if assert.NoError(t, err) {
				ids <- resp.AppointmentID
			}
		}()
	}
	wg.Wait()
	close(ids)

	unique := map[string]bool{}
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, n)

	appts, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, n)
	for _, a := range appts {
		assert.True(t, unique[a.ID])
	}
}

func TestAppointmentService_Book_Recaptcha(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("response") == "good-token" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer server.Close()

	f := newBookingFixture(t, testConfig())
	f.service.WithRecaptchaVerifier(
		recaptcha.NewVerifier("secret", httpclient.NewStandardClient()).WithVerifyURL(server.URL))

	req := danaRequest()
	req.RecaptchaToken = "bad-token"
	_, err := f.service.Book(context.Background(), req, nil, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	req.RecaptchaToken = "good-token"
	resp, err := f.service.Book(context.Background(), req, nil, "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestAppointmentService_Book_FiresTrigger(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.URL.Query().Get("record_id")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.EventTriggers.AppointmentCreatedTriggerURL = server.URL + "/hooks/appointment"
	f := newBookingFixture(t, cfg)

	resp, err := f.service.Book(context.Background(), danaRequest(), nil, "")
	require.NoError(t, err)

	select {
	case id := <-received:
		assert.Equal(t, resp.AppointmentID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger URL was not called")
	}
}

func TestAppointmentService_List_Empty(t *testing.T) {
	store := new(MockAppointmentStore)
	svc := services.NewAppointmentService(store, new(MockAttachmentStore), practice.Default(), testConfig(), httpclient.NewStandardClient())
	store.On("List", mock.Anything).Return(nil, nil).Once()

	appts, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, appts)
	assert.Empty(t, appts)
}

func TestAppointmentService_OpenAttachment_UnknownFile(t *testing.T) {
	f := newBookingFixture(t, testConfig())
	ctx := context.Background()

	resp, err := f.service.Book(ctx, danaRequest(), nil, "")
	require.NoError(t, err)

	_, err = f.service.OpenAttachment(ctx, resp.AppointmentID, "1-other.pdf")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.service.OpenAttachment(ctx, "missing", "1-other.pdf")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
