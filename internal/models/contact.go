package models

import "time"

// ContactStatus enumerates follow-up states. Dropped contacts can be resumed;
// completed is terminal.
type ContactStatus string

const (
	ContactStatusActive    ContactStatus = "active"
	ContactStatusCompleted ContactStatus = "completed"
	ContactStatusDropped   ContactStatus = "dropped"
)

// Contact is an admin-facing follow-up record for a lead or student.
// NextFollowUpAt is nil only for freshly created contacts that have not been
// scheduled yet; the bucketing treats those as immediately due.
type Contact struct {
	ID              string        `db:"id" json:"id"`
	Name            string        `db:"name" json:"name"`
	Phone           string        `db:"phone" json:"phone"`
	Note            string        `db:"note" json:"note"`
	StudentID       *string       `db:"student_id" json:"student_id,omitempty"`
	Status          ContactStatus `db:"status" json:"status"`
	NextFollowUpAt  *time.Time    `db:"next_follow_up_at" json:"next_follow_up_at,omitempty"`
	LastContactedAt *time.Time    `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// ContactFilter describes query params for listing contacts.
type ContactFilter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// ContactBuckets partitions contacts relative to a reference day.
// UpcomingTotal carries the size of the full upcoming set when the Upcoming
// slice has been capped for display.
type ContactBuckets struct {
	Due           []Contact `json:"due"`
	Upcoming      []Contact `json:"upcoming"`
	UpcomingTotal int       `json:"upcoming_total"`
	Completed     []Contact `json:"completed,omitempty"`
}
