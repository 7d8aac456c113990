package dto

import (
	"time"

	"github.com/ripetiamo/backoffice-api/internal/models"
)

// GenerateReportRequest enqueues a background report.
type GenerateReportRequest struct {
	Type         models.ReportType   `json:"type" validate:"required,oneof=unpaid_bookings due_contacts"`
	Format       models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	StudentID    *string             `json:"student_id"`
	ReferenceDay string              `json:"reference_day" validate:"omitempty,datetime=2006-01-02"`
}

// ReportJobResponse reports job state to the client.
type ReportJobResponse struct {
	ID           string              `json:"id"`
	Type         models.ReportType   `json:"type"`
	Format       models.ReportFormat `json:"format"`
	Status       models.ReportStatus `json:"status"`
	DownloadURL  *string             `json:"download_url,omitempty"`
	ExpiresAt    *time.Time          `json:"expires_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
}
