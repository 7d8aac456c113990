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

const studentColumns = `id, full_name, email, phone, hours_paid, hours_consumed, remaining_paid_hours, hourly_rate, active, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	baseQuery := `FROM students WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"full_name": true, "email": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, baseQuery, sortBy, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student; the ledger needs the full roster to
// attribute bookings by id or email.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, full_name, email, phone, hours_paid, hours_consumed, remaining_paid_hours, hourly_rate, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.FullName, student.Email, student.Phone,
		student.HoursPaid, student.HoursConsumed, student.RemainingPaidHours,
		student.HourlyRate, student.Active, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update persists mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = $2, email = $3, phone = $4, hours_paid = $5, hours_consumed = $6, remaining_paid_hours = $7, hourly_rate = $8, active = $9, updated_at = $10 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		student.ID, student.FullName, student.Email, student.Phone,
		student.HoursPaid, student.HoursConsumed, student.RemainingPaidHours,
		student.HourlyRate, student.Active, student.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ConsumeHours records consumed hours after a completed lesson and refreshes
// the cached remaining projection in the same statement.
func (r *StudentRepository) ConsumeHours(ctx context.Context, id string, hours float64, ts time.Time) error {
	const query = `UPDATE students SET hours_consumed = hours_consumed + $2,
        remaining_paid_hours = GREATEST(hours_paid - hours_consumed - $2, 0),
        updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, hours, ts)
	if err != nil {
		return fmt.Errorf("consume hours: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TopUpHours adds prepaid hours and refreshes the cached remaining
// projection in the same statement, keeping it consistent with the derived
// value.
func (r *StudentRepository) TopUpHours(ctx context.Context, id string, hours float64, ts time.Time) error {
	const query = `UPDATE students SET hours_paid = hours_paid + $2,
        remaining_paid_hours = GREATEST(hours_paid + $2 - hours_consumed, 0),
        updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, hours, ts)
	if err != nil {
		return fmt.Errorf("top up hours: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
