package services_test

import (
	"bytes"
	"io"

	"github.com/goldhabermd/clinic-api/config"
	"github.com/goldhabermd/clinic-api/internal/models"
	"github.com/goldhabermd/clinic-api/pkg/logger"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

var (
	pdfBytes  = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func testConfig() *config.Config {
	return &config.Config{
		Chat: config.ChatConfig{
			TimeoutSeconds:   5,
			InterceptBooking: true,
		},
		Intake: config.IntakeConfig{
			MaxFiles:              5,
			MaxFileSizeBytes:      10 << 20,
			IdempotencyTTLSeconds: 3600,
		},
	}
}

func memAttachment(field, name string, data []byte) models.Attachment {
	return models.Attachment{
		FieldName: field,
		FileName:  name,
		Size:      int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func danaRequest() *models.BookAppointmentRequest {
	return &models.BookAppointmentRequest{
		FirstName: "Dana",
		LastName:  "Levi",
		Email:     "d@x.com",
		Phone:     "0501234567",
		IDNumber:  "123456789",
		Service:   "general-consultation",
		Date:      "2025-03-01",
		Time:      "10:00",
	}
}
