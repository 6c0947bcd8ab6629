package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goldhabermd/clinic-api/config"
	"github.com/goldhabermd/clinic-api/internal/cache"
	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/internal/practice"
	"github.com/goldhabermd/clinic-api/internal/repository"
	"github.com/goldhabermd/clinic-api/internal/storage"
	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/httpclient"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"github.com/goldhabermd/clinic-api/pkg/recaptcha"
	"github.com/goldhabermd/clinic-api/pkg/trigger"
	"github.com/goldhabermd/clinic-api/pkg/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	BookingSuccessMessage = "Appointment booked successfully"
	BookingFailureMessage = "Failed to book appointment"
)

// allowedAttachmentTypes are matched against sniffed content, not the
// client-supplied header
var allowedAttachmentTypes = []string{"application/pdf", "image/png", "image/jpeg"}

// AppointmentService runs the booking pipeline: validate, store attachments,
// append the record, notify.
type AppointmentService struct {
	store       repository.AppointmentStore
	attachments storage.AttachmentStore
	profile     *practice.Profile
	config      *config.Config
	httpClient  httpclient.Client
	recaptcha   *recaptcha.Verifier
	idempotency *cache.IdempotencyCache
	newID       func() string
	now         func() time.Time
}

// NewAppointmentService creates a new appointment service instance
func NewAppointmentService(
	store repository.AppointmentStore,
	attachments storage.AttachmentStore,
	profile *practice.Profile,
	cfg *config.Config,
	httpClient httpclient.Client,
) *AppointmentService {
	return &AppointmentService{
		store:       store,
		attachments: attachments,
		profile:     profile,
		config:      cfg,
		httpClient:  httpClient,
		recaptcha:   recaptcha.NewVerifier(cfg.ReCAPTCHA.SecretKey, httpClient),
		idempotency: cache.NewIdempotencyCache(cfg.Intake.IdempotencyTTL()),
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// WithRecaptchaVerifier replaces the captcha verifier (tests)
func (s *AppointmentService) WithRecaptchaVerifier(v *recaptcha.Verifier) *AppointmentService {
	s.recaptcha = v
	return s
}

// Book stores one submission. Invalid input returns ErrInvalidInput and no
// response; a storage failure returns the generic failure response together
// with the error. Already written attachments are not removed on failure.
func (s *AppointmentService) Book(
	ctx context.Context,
	req *models.BookAppointmentRequest,
	attachments []models.Attachment,
	idempotencyKey string,
) (*models.BookAppointmentResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "AppointmentService.Book",
		attribute.String("appointment.service", req.Service),
		attribute.Int("appointment.attachments", len(attachments)))
	defer span.End()

	resp, replayed, err := s.idempotency.Do(ctx, idempotencyKey, func() (*models.BookAppointmentResponse, error) {
		return s.book(ctx, req, attachments)
	})
	if err != nil {
		tracing.RecordError(span, err)
	}
	if replayed {
		span.SetAttributes(attribute.Bool("appointment.replayed", true))
	}
	return resp, err
}

type acceptedAttachment struct {
	models.Attachment
	detectedType string
}

func (s *AppointmentService) book(
	ctx context.Context,
	req *models.BookAppointmentRequest,
	attachments []models.Attachment,
) (*models.BookAppointmentResponse, error) {
	if !s.profile.HasService(req.Service) {
		metrics.AppointmentSubmissions.WithLabelValues("invalid").Inc()
		return nil, apperrors.InvalidInputError("service", "unknown service")
	}

	accepted, err := s.checkAttachments(attachments)
	if err != nil {
		metrics.AppointmentSubmissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	if err := s.recaptcha.Verify(ctx, req.RecaptchaToken); err != nil {
		metrics.AppointmentSubmissions.WithLabelValues("captcha_failed").Inc()
		logger.Warn("ReCAPTCHA verification failed", zap.Error(err))
		return nil, apperrors.InvalidInputError("recaptchaToken", "captcha verification failed")
	}

	appt := &models.Appointment{
		ID:        s.newID(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		IDNumber:  req.IDNumber,
		Service:   req.Service,
		Date:      req.Date,
		Time:      req.Time,
		Notes:     req.Notes,
		CreatedAt: s.now().UTC(),
		Files:     []string{},
		Status:    models.AppointmentStatusPending,
	}

	if err := s.attachments.Prepare(ctx, appt.ID); err != nil {
		return s.fail(appt, "prepare attachment location", err)
	}

	for _, att := range accepted {
		stored, err := s.saveAttachment(ctx, appt.ID, att)
		if err != nil {
			return s.fail(appt, "save attachment", err)
		}
		appt.Files = append(appt.Files, stored)
	}

	if err := s.store.Append(ctx, appt); err != nil {
		return s.fail(appt, "append appointment", err)
	}

	metrics.AppointmentSubmissions.WithLabelValues("success").Inc()
	metrics.AppointmentsByService.WithLabelValues(appt.Service).Inc()
	logger.Info("New appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("service", appt.Service),
		zap.String("date", appt.Date),
		zap.String("time", appt.Time),
		zap.Int("files", len(appt.Files)))

	trigger.CallAsync(s.config.EventTriggers.AppointmentCreatedTriggerURL, appt.ID, s.httpClient)

	return &models.BookAppointmentResponse{
		Success:       true,
		AppointmentID: appt.ID,
		Message:       BookingSuccessMessage,
	}, nil
}

// checkAttachments drops empty parts and enforces count, size and type
func (s *AppointmentService) checkAttachments(attachments []models.Attachment) ([]acceptedAttachment, error) {
	accepted := make([]acceptedAttachment, 0, len(attachments))
	for _, att := range attachments {
		if att.Size <= 0 {
			continue
		}
		if len(accepted) == s.config.Intake.MaxFiles {
			return nil, apperrors.InvalidInputError("files",
				fmt.Sprintf("at most %d files may be attached", s.config.Intake.MaxFiles))
		}
		if att.Size > s.config.Intake.MaxFileSizeBytes {
			return nil, apperrors.InvalidInputError(att.FieldName,
				fmt.Sprintf("file exceeds %d bytes", s.config.Intake.MaxFileSizeBytes))
		}

		detected, err := sniff(att)
		if err != nil {
			return nil, apperrors.InvalidInputError(att.FieldName, "file could not be read")
		}
		if !mimetype.EqualsAny(detected, allowedAttachmentTypes...) {
			return nil, apperrors.InvalidInputError(att.FieldName,
				fmt.Sprintf("file type %s is not allowed (PDF, PNG or JPEG only)", detected))
		}

		accepted = append(accepted, acceptedAttachment{Attachment: att, detectedType: detected})
	}
	return accepted, nil
}

func sniff(att models.Attachment) (string, error) {
	rc, err := att.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	mt, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}

func (s *AppointmentService) saveAttachment(ctx context.Context, appointmentID string, att acceptedAttachment) (string, error) {
	rc, err := att.Open()
	if err != nil {
		return "", apperrors.StorageError("open upload", err)
	}
	defer rc.Close()

	return s.attachments.Save(ctx, appointmentID, att.FileName, io.LimitReader(rc, att.Size), att.detectedType)
}

func (s *AppointmentService) fail(appt *models.Appointment, step string, err error) (*models.BookAppointmentResponse, error) {
	metrics.AppointmentSubmissions.WithLabelValues("error").Inc()

	fields := []zap.Field{
		zap.String("appointment_id", appt.ID),
		zap.String("step", step),
		zap.Error(err),
	}
	if len(appt.Files) > 0 {
		fields = append(fields, zap.Strings("orphaned_files", appt.Files))
	}
	logger.Error("Appointment booking failed", fields...)

	return &models.BookAppointmentResponse{
		Success: false,
		Error:   BookingFailureMessage,
	}, fmt.Errorf("%s: %w", step, err)
}

// List returns every stored appointment in submission order
func (s *AppointmentService) List(ctx context.Context) ([]*models.Appointment, error) {
	appts, err := s.store.List(ctx)
	if err != nil {
		logger.Error("Failed to list appointments", zap.Error(err))
		return nil, err
	}
	if appts == nil {
		appts = []*models.Appointment{}
	}
	return appts, nil
}

// Get returns a single appointment
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	return s.store.Get(ctx, id)
}

// OpenAttachment streams one stored file of an existing appointment
func (s *AppointmentService) OpenAttachment(ctx context.Context, id, storedName string) (io.ReadCloser, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, f := range appt.Files {
		if f == storedName {
			return s.attachments.Open(ctx, id, storedName)
		}
	}
	return nil, apperrors.NotFoundError("attachment " + storedName)
}
