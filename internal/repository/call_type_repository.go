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

const callTypeColumns = `id, slug, name, duration_minutes, active, created_at, updated_at`

// CallTypeRepository manages persistence for bookable lesson formats.
type CallTypeRepository struct {
	db *sqlx.DB
}

// NewCallTypeRepository constructs a CallTypeRepository.
func NewCallTypeRepository(db *sqlx.DB) *CallTypeRepository {
	return &CallTypeRepository{db: db}
}

// ListAll returns every registered call type.
func (r *CallTypeRepository) ListAll(ctx context.Context) ([]models.CallType, error) {
	query := fmt.Sprintf("SELECT %s FROM call_types ORDER BY name ASC", callTypeColumns)
	var callTypes []models.CallType
	if err := r.db.SelectContext(ctx, &callTypes, query); err != nil {
		return nil, fmt.Errorf("list call types: %w", err)
	}
	return callTypes, nil
}

// FindBySlug fetches a call type by its slug.
func (r *CallTypeRepository) FindBySlug(ctx context.Context, slug string) (*models.CallType, error) {
	query := fmt.Sprintf("SELECT %s FROM call_types WHERE slug = $1", callTypeColumns)
	var callType models.CallType
	if err := r.db.GetContext(ctx, &callType, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find call type: %w", err)
	}
	return &callType, nil
}

// Create inserts a new call type.
func (r *CallTypeRepository) Create(ctx context.Context, callType *models.CallType) error {
	if callType.ID == "" {
		callType.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	callType.CreatedAt = now
	callType.UpdatedAt = now

	const query = `INSERT INTO call_types (id, slug, name, duration_minutes, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		callType.ID, callType.Slug, callType.Name, callType.DurationMinutes,
		callType.Active, callType.CreatedAt, callType.UpdatedAt); err != nil {
		return fmt.Errorf("create call type: %w", err)
	}
	return nil
}

// Update persists mutable call-type fields.
func (r *CallTypeRepository) Update(ctx context.Context, callType *models.CallType) error {
	callType.UpdatedAt = time.Now().UTC()
	const query = `UPDATE call_types SET name = $2, duration_minutes = $3, active = $4, updated_at = $5 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		callType.ID, callType.Name, callType.DurationMinutes, callType.Active, callType.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update call type: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
