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

const bookingColumns = `id, slot_id, student_id, student_email, call_type_slug, starts_at, duration_minutes, status, note, created_at, updated_at`

// BookingRepository manages persistence for lesson bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// List returns bookings matching the provided filters with the total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	baseQuery := `FROM bookings WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY starts_at %s LIMIT %d OFFSET %d", bookingColumns, baseQuery, order, size, offset)

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

// ListActiveFrom returns every booking not completed or cancelled starting at
// or after the given instant, ordered chronologically. The ledger replays
// this set on each recomputation.
func (r *BookingRepository) ListActiveFrom(ctx context.Context, from time.Time) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE status NOT IN ($1, $2) AND starts_at >= $3 ORDER BY starts_at ASC`, bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query,
		models.BookingStatusCompleted, models.BookingStatusCancelled, from); err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return bookings, nil
}

// GetByID fetches a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

// Create inserts a new booking, assigning an id when absent.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, slot_id, student_id, student_email, call_type_slug, starts_at, duration_minutes, status, note, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.SlotID, booking.StudentID, booking.StudentEmail, booking.CallTypeSlug,
		booking.StartsAt, booking.DurationMinutes, booking.Status, booking.Note,
		booking.CreatedAt, booking.UpdatedAt); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// Update persists mutable booking fields.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET student_id = $2, student_email = $3, call_type_slug = $4, starts_at = $5, duration_minutes = $6, status = $7, note = $8, updated_at = $9 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.StudentID, booking.StudentEmail, booking.CallTypeSlug,
		booking.StartsAt, booking.DurationMinutes, booking.Status, booking.Note, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus transitions a booking's status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus, ts time.Time) error {
	const query = `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, ts)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
