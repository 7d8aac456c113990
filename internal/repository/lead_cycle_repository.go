package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ripetiamo/backoffice-api/internal/models"
)

const leadCycleColumns = `id, phone, status, current_step, last_contacted_at, next_follow_up_at, created_at, updated_at`

// LeadCycleRepository manages persistence for nurture cycles. The normalized
// phone number is the unique key: restarting a cycle for the same lead
// updates the existing row rather than creating a duplicate.
type LeadCycleRepository struct {
	db *sqlx.DB
}

// NewLeadCycleRepository constructs a LeadCycleRepository.
func NewLeadCycleRepository(db *sqlx.DB) *LeadCycleRepository {
	return &LeadCycleRepository{db: db}
}

// Upsert creates or replaces the cycle for the given phone number.
func (r *LeadCycleRepository) Upsert(ctx context.Context, cycle *models.LeadCycle) error {
	if cycle.ID == "" {
		cycle.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cycle.CreatedAt = now
	cycle.UpdatedAt = now

	const query = `INSERT INTO lead_cycles (id, phone, status, current_step, last_contacted_at, next_follow_up_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (phone) DO UPDATE SET
            status = EXCLUDED.status,
            current_step = EXCLUDED.current_step,
            last_contacted_at = EXCLUDED.last_contacted_at,
            next_follow_up_at = EXCLUDED.next_follow_up_at,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query,
		cycle.ID, cycle.Phone, cycle.Status, cycle.CurrentStep,
		cycle.LastContactedAt, cycle.NextFollowUpAt, cycle.CreatedAt, cycle.UpdatedAt); err != nil {
		return fmt.Errorf("upsert lead cycle: %w", err)
	}
	return nil
}

// FindByPhone fetches the cycle keyed by a normalized phone number.
func (r *LeadCycleRepository) FindByPhone(ctx context.Context, phone string) (*models.LeadCycle, error) {
	query := fmt.Sprintf("SELECT %s FROM lead_cycles WHERE phone = $1", leadCycleColumns)
	var cycle models.LeadCycle
	if err := r.db.GetContext(ctx, &cycle, query, phone); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lead cycle: %w", err)
	}
	return &cycle, nil
}

// ListDueBy returns active cycles scheduled at or before the cutoff.
func (r *LeadCycleRepository) ListDueBy(ctx context.Context, cutoff time.Time) ([]models.LeadCycle, error) {
	query := fmt.Sprintf("SELECT %s FROM lead_cycles WHERE status = $1 AND next_follow_up_at <= $2 ORDER BY next_follow_up_at ASC", leadCycleColumns)
	var cycles []models.LeadCycle
	if err := r.db.SelectContext(ctx, &cycles, query, models.LeadCycleStatusActive, cutoff); err != nil {
		return nil, fmt.Errorf("list due lead cycles: %w", err)
	}
	return cycles, nil
}
