package models

import "time"

// LeadCycleStatus enumerates nurture-sequence states.
type LeadCycleStatus string

const (
	LeadCycleStatusActive LeadCycleStatus = "active"
	LeadCycleStatusDone   LeadCycleStatus = "done"
)

// LeadCycle is the automated nurture cadence for a lead, keyed by normalized
// phone number. It is a separate aggregate from Contact: the contact's own
// follow-up schedule and the lead cadence advance independently.
type LeadCycle struct {
	ID              string          `db:"id" json:"id"`
	Phone           string          `db:"phone" json:"phone"`
	Status          LeadCycleStatus `db:"status" json:"status"`
	CurrentStep     int             `db:"current_step" json:"current_step"`
	LastContactedAt time.Time       `db:"last_contacted_at" json:"last_contacted_at"`
	NextFollowUpAt  time.Time       `db:"next_follow_up_at" json:"next_follow_up_at"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
