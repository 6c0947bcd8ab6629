package handlers

import (
	"bytes"
	"cmp"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/internal/services"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader lets the booking page retry a submission safely
const IdempotencyKeyHeader = "Idempotency-Key"

// attachmentFieldPrefix marks multipart parts that carry uploaded files
const attachmentFieldPrefix = "file"

// sniffLength is how much of a stored file is read to pick a Content-Type
const sniffLength = 3072

type AppointmentHandler struct {
	service services.AppointmentServiceInterface
}

func NewAppointmentHandler(service services.AppointmentServiceInterface) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// BookAppointment handles POST /api/v1/appointments
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	var req models.BookAppointmentRequest
	err := c.ShouldBindWith(&req, binding.FormMultipart)
	if form := c.Request.MultipartForm; form != nil {
		defer form.RemoveAll() //nolint:errcheck
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return
		}
		if details := ParseValidationErrors(err); len(details) > 0 {
			respondInvalidBooking(c, details, err)
			return
		}
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	attachments := collectAttachments(c.Request.MultipartForm)

	resp, err := h.service.Book(c.Request.Context(), &req, attachments, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		if resp != nil {
			attachError(c, err)
			c.JSON(http.StatusInternalServerError, resp)
			return
		}
		if status := statusFor(err); status == http.StatusBadRequest {
			respondInvalidBooking(c, err.Error(), err)
			return
		}
		attachError(c, err)
		c.JSON(http.StatusInternalServerError, models.BookAppointmentResponse{
			Success: false,
			Error:   services.BookingFailureMessage,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func respondInvalidBooking(c *gin.Context, details any, err error) {
	attachError(c, err)
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Validation failed",
		"details": details,
	})
}

// collectAttachments returns the file parts ordered by the numeric suffix of
// their field name (file0, file1, ..., file10)
func collectAttachments(form *multipart.Form) []models.Attachment {
	if form == nil {
		return nil
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		if strings.HasPrefix(field, attachmentFieldPrefix) {
			fields = append(fields, field)
		}
	}
	slices.SortFunc(fields, compareAttachmentFields)

	var attachments []models.Attachment
	for _, field := range fields {
		for _, fh := range form.File[field] {
			attachments = append(attachments, models.Attachment{
				FieldName:   field,
				FileName:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return attachments
}

func compareAttachmentFields(a, b string) int {
	na, errA := strconv.Atoi(strings.TrimPrefix(a, attachmentFieldPrefix))
	nb, errB := strconv.Atoi(strings.TrimPrefix(b, attachmentFieldPrefix))
	switch {
	case errA == nil && errB == nil && na != nb:
		return cmp.Compare(na, nb)
	case errA == nil && errB != nil:
		return -1
	case errA != nil && errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// ListAppointments handles GET /api/v1/appointments
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	appts, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch appointments", err)
		return
	}

	c.JSON(http.StatusOK, models.AppointmentsResponse{Appointments: appts})
}

// GetAppointment handles GET /api/v1/appointments/:id
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusNotFound, "Appointment not found", err)
		return
	}

	appt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			respondError(c, http.StatusNotFound, "Appointment not found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch appointment", err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

// GetAppointmentFile handles GET /api/v1/appointments/:id/files/:name
func (h *AppointmentHandler) GetAppointmentFile(c *gin.Context) {
	id := c.Param("id")
	name := c.Param("name")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusNotFound, "File not found", err)
		return
	}

	rc, err := h.service.OpenAttachment(c.Request.Context(), id, name)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			respondError(c, http.StatusNotFound, "File not found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to read file", err)
		return
	}
	defer rc.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		respondError(c, http.StatusInternalServerError, "Failed to read file", err)
		return
	}
	head = head[:n]

	c.DataFromReader(http.StatusOK, -1, mimetype.Detect(head).String(),
		io.MultiReader(bytes.NewReader(head), rc),
		map[string]string{
			"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
		})
}
