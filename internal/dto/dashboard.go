package dto

import (
	"time"

	"github.com/ripetiamo/backoffice-api/internal/dates"
	"github.com/ripetiamo/backoffice-api/internal/models"
)

// DashboardOverview is the single payload the admin home screen renders.
type DashboardOverview struct {
	ReferenceDay     string             `json:"reference_day"`
	DueContacts      DueContactsSummary `json:"due_contacts"`
	UnpaidBookings   UnpaidSummary      `json:"unpaid_bookings"`
	UpcomingBookings []models.Booking   `json:"upcoming_bookings"`
	Month            MonthView          `json:"month"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// DueContactsSummary reports the due bucket with a display head.
type DueContactsSummary struct {
	Total int              `json:"total"`
	Head  []models.Contact `json:"head"`
}

// UnpaidSummary reports the unpaid and unmatched booking sets.
type UnpaidSummary struct {
	Total     int                  `json:"total"`
	Keys      []string             `json:"keys"`
	Bookings  []models.BookingView `json:"bookings"`
	Unmatched int                  `json:"unmatched"`
}

// MonthView carries the calendar grid with per-day booking counts.
type MonthView struct {
	Month    string            `json:"month"`
	Cells    []dates.MonthCell `json:"cells"`
	Bookings map[string]int    `json:"bookings_per_day"`
}
