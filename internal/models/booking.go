package models

import "time"

// BookingStatus enumerates the lifecycle states of a lesson booking.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking represents a scheduled lesson. StudentID may be nil when the
// booking came in through the public widget and could not be matched to a
// registered student yet; the ledger then falls back to email matching.
type Booking struct {
	ID              string        `db:"id" json:"id"`
	SlotID          string        `db:"slot_id" json:"slot_id"`
	StudentID       *string       `db:"student_id" json:"student_id,omitempty"`
	StudentEmail    string        `db:"student_email" json:"student_email"`
	CallTypeSlug    string        `db:"call_type_slug" json:"call_type_slug"`
	StartsAt        time.Time     `db:"starts_at" json:"starts_at"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Status          BookingStatus `db:"status" json:"status"`
	Note            string        `db:"note" json:"note"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	StudentID string
	Status    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// BookingView decorates a booking with ledger-derived display state.
type BookingView struct {
	Booking
	IsUnpaid  bool `json:"is_unpaid"`
	Unmatched bool `json:"unmatched,omitempty"`
}
