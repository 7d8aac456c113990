package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ripetiamo/backoffice-api/internal/models"
)

const contactColumns = `id, name, phone, note, student_id, status, next_follow_up_at, last_contacted_at, created_at, updated_at`

// ContactRepository manages persistence for follow-up contacts.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository constructs a ContactRepository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// List returns contacts matching the provided filters, ordered by
// next_follow_up_at with unscheduled contacts first.
func (r *ContactRepository) List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, int, error) {
	baseQuery := `FROM contacts WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR phone LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY next_follow_up_at ASC NULLS FIRST LIMIT %d OFFSET %d", contactColumns, baseQuery, size, offset)

	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}
	return contacts, total, nil
}

// ListAll returns the full contact set; bucketing re-partitions it in memory
// on every admin session load.
func (r *ContactRepository) ListAll(ctx context.Context) ([]models.Contact, error) {
	query := fmt.Sprintf("SELECT %s FROM contacts ORDER BY next_follow_up_at ASC NULLS FIRST", contactColumns)
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query); err != nil {
		return nil, fmt.Errorf("list all contacts: %w", err)
	}
	return contacts, nil
}

// GetByID fetches a contact by ID.
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	query := fmt.Sprintf("SELECT %s FROM contacts WHERE id = $1", contactColumns)
	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return &contact, nil
}

// Create inserts a new contact.
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	const query = `INSERT INTO contacts (id, name, phone, note, student_id, status, next_follow_up_at, last_contacted_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(ctx, query,
		contact.ID, contact.Name, contact.Phone, contact.Note, contact.StudentID,
		contact.Status, contact.NextFollowUpAt, contact.LastContactedAt,
		contact.CreatedAt, contact.UpdatedAt); err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// Update persists mutable contact fields.
func (r *ContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	contact.UpdatedAt = time.Now().UTC()
	const query = `UPDATE contacts SET name = $2, phone = $3, note = $4, student_id = $5, status = $6, next_follow_up_at = $7, last_contacted_at = $8, updated_at = $9 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		contact.ID, contact.Name, contact.Phone, contact.Note, contact.StudentID,
		contact.Status, contact.NextFollowUpAt, contact.LastContactedAt, contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a contact.
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
