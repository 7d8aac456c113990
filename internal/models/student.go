package models

import "time"

// Student represents a learner with a prepaid-hour balance.
//
// RemainingPaidHours is a cached projection maintained by writes; the ledger
// treats hours_paid - hours_consumed as the canonical balance and only falls
// back to the projection when it is present.
type Student struct {
	ID                 string    `db:"id" json:"id"`
	FullName           string    `db:"full_name" json:"full_name"`
	Email              string    `db:"email" json:"email"`
	Phone              string    `db:"phone" json:"phone"`
	HoursPaid          float64   `db:"hours_paid" json:"hours_paid"`
	HoursConsumed      float64   `db:"hours_consumed" json:"hours_consumed"`
	RemainingPaidHours *float64  `db:"remaining_paid_hours" json:"remaining_paid_hours,omitempty"`
	HourlyRate         float64   `db:"hourly_rate" json:"hourly_rate"`
	Active             bool      `db:"active" json:"active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentBalance is the balance slice of a student returned by the balance
// endpoint, with the derived remaining value resolved on read.
type StudentBalance struct {
	StudentID        string  `json:"student_id"`
	HoursPaid        float64 `json:"hours_paid"`
	HoursConsumed    float64 `json:"hours_consumed"`
	RemainingHours   float64 `json:"remaining_hours"`
	RemainingMinutes int     `json:"remaining_minutes"`
	HourlyRate       float64 `json:"hourly_rate"`
}
