package models

import "time"

// CallType describes a bookable lesson format. The registered duration is
// used by the ledger whenever a booking carries no explicit duration.
type CallType struct {
	ID              string    `db:"id" json:"id"`
	Slug            string    `db:"slug" json:"slug"`
	Name            string    `db:"name" json:"name"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
