package models

import (
	"encoding/json"
	"io"
	"time"
)

// AppointmentStatusPending is the only status this service ever assigns
const AppointmentStatusPending = "pending"

// Appointment is one booking request as persisted in the record store
type Appointment struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IDNumber  string    `json:"idNumber"`
	Service   string    `json:"service"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	Files     []string  `json:"files"`
	Status    string    `json:"status"`
}

// MarshalJSON keeps files as an array even when no attachment was stored
func (a Appointment) MarshalJSON() ([]byte, error) {
	type plain Appointment
	p := plain(a)
	if p.Files == nil {
		p.Files = []string{}
	}
	return json.Marshal(p)
}

// BookAppointmentRequest is the text part of the multipart booking form.
// Constraints mirror the ones the booking page enforces client-side.
type BookAppointmentRequest struct {
	FirstName      string `form:"firstName" binding:"required,min=2,max=100"`
	LastName       string `form:"lastName" binding:"required,min=2,max=100"`
	Email          string `form:"email" binding:"required,email,max=255"`
	Phone          string `form:"phone" binding:"required,min=9,max=20"`
	IDNumber       string `form:"idNumber" binding:"required,min=9,max=20"`
	Service        string `form:"service" binding:"required,max=100"`
	Date           string `form:"date" binding:"required,max=50"`
	Time           string `form:"time" binding:"required,max=50"`
	Notes          string `form:"notes" binding:"max=5000"`
	RecaptchaToken string `form:"recaptchaToken"`
}

// Attachment is one uploaded file part of a booking submission
type Attachment struct {
	FieldName   string
	FileName    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// BookAppointmentResponse represents the response after a booking submission
type BookAppointmentResponse struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointmentId,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AppointmentsResponse is the listing payload
type AppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
}
