// Package certificate implements the client for the certificate issuing
// service. The service is a separate system that renders and stores course
// completion certificates; this client only asks it to start issuing one
// and checks on the result.
package certificate

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// API RESPONSE WRAPPERS
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse represents a generic API response wrapper.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// IssueRequestDTO is the payload for requesting a certificate.
// EnrollmentID doubles as the idempotency key: the issuing service
// dedupes on it, so redelivered completion events are harmless.
type IssueRequestDTO struct {
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	CourseID     string    `json:"course_id"`
	RequestedAt  time.Time `json:"requested_at"`
}

// Certificate issuing states as reported by the service.
const (
	StatusPending = "pending"
	StatusIssued  = "issued"
	StatusFailed  = "failed"
)

// CertificateDTO represents a certificate as returned by the issuing service.
type CertificateDTO struct {
	// ID is the certificate identifier in the issuing service
	ID string `json:"id"`

	// EnrollmentID is the enrollment this certificate was issued for
	EnrollmentID string `json:"enrollment_id"`

	// StudentID is the certificate holder
	StudentID string `json:"student_id"`

	// CourseID is the completed course
	CourseID string `json:"course_id"`

	// Status is the issuing state (pending, issued, failed)
	Status string `json:"status"`

	// DownloadURL is where the rendered certificate can be fetched,
	// empty until the status is issued
	DownloadURL string `json:"download_url,omitempty"`

	// RequestedAt is when issuing was requested
	RequestedAt time.Time `json:"requested_at"`

	// IssuedAt is when the certificate was rendered
	IssuedAt *time.Time `json:"issued_at,omitempty"`
}

// IsIssued returns true if the certificate has been rendered.
func (c *CertificateDTO) IsIssued() bool {
	return c.Status == StatusIssued
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR DTOs
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorDTO represents an error response from the issuing service.
type APIErrorDTO struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// RequestID is the ID of the failed request (for debugging)
	RequestID string `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
