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

const reportJobColumns = `id, type, params, status, result_url, created_by, created_at, finished_at, error_message`

// UpdateReportJobParams carries the mutable fields of a report job row.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	ResultURL    *string
	FinishedAt   *time.Time
	ErrorMessage *string
}

// ReportJobRepository manages persistence for asynchronous report jobs.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository constructs a ReportJobRepository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

// Create inserts a queued report job.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}

	const query = `INSERT INTO report_jobs (id, type, params, status, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		job.ID, job.Type, job.Params, job.Status, job.CreatedBy, job.CreatedAt); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID fetches a report job by ID.
func (r *ReportJobRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM report_jobs WHERE id = $1", reportJobColumns)
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return &job, nil
}

// Update applies the provided mutable fields to a job row.
func (r *ReportJobRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	sets := make([]string, 0, 4)
	args := []interface{}{id}

	if params.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *params.Status)
	}
	if params.ResultURL != nil {
		sets = append(sets, fmt.Sprintf("result_url = $%d", len(args)+1))
		args = append(args, *params.ResultURL)
	}
	if params.FinishedAt != nil {
		sets = append(sets, fmt.Sprintf("finished_at = $%d", len(args)+1))
		args = append(args, *params.FinishedAt)
	}
	if params.ErrorMessage != nil {
		sets = append(sets, fmt.Sprintf("error_message = $%d", len(args)+1))
		args = append(args, *params.ErrorMessage)
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE report_jobs SET %s WHERE id = $1", strings.Join(sets, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListQueued returns jobs waiting for a worker, oldest first.
func (r *ReportJobRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT %s FROM report_jobs WHERE status = $1 ORDER BY created_at ASC LIMIT %d", reportJobColumns, limit)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, models.ReportStatusQueued); err != nil {
		return nil, fmt.Errorf("list queued report jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore returns finished or failed jobs older than the cutoff,
// used by the cleanup loop.
func (r *ReportJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM report_jobs WHERE status IN ($1, $2) AND finished_at < $3 ORDER BY finished_at ASC LIMIT %d", reportJobColumns, limit)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, models.ReportStatusFinished, models.ReportStatusFailed, cutoff); err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	return jobs, nil
}
