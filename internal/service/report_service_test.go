package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripetiamo/backoffice-api/internal/dto"
	"github.com/ripetiamo/backoffice-api/internal/models"
	"github.com/ripetiamo/backoffice-api/internal/repository"
	"github.com/ripetiamo/backoffice-api/pkg/jobs"
)

type fakeReportStore struct {
	jobs    map[string]*models.ReportJob
	updates []repository.UpdateReportJobParams
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{jobs: make(map[string]*models.ReportJob)}
}

func (f *fakeReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", len(f.jobs)+1)
	}
	job.CreatedAt = time.Now().UTC()
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (f *fakeReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.updates = append(f.updates, params)
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	return nil
}

func (f *fakeReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	queued := make([]models.ReportJob, 0)
	for _, job := range f.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (f *fakeReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type fakeDispatcher struct {
	enqueued []jobs.Job
	fail     bool
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	if f.fail {
		return fmt.Errorf("queue full")
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

type fakeGenerator struct {
	result *ExportResult
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	return f.result, f.err
}

func TestReportServiceCreateJobEnqueues(t *testing.T) {
	store := newFakeReportStore()
	queue := &fakeDispatcher{}
	svc := NewReportService(store, queue, nil, nil, nil, ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.GenerateReportRequest{
		Type:   models.ReportTypeUnpaidBookings,
		Format: models.ReportFormatCSV,
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
}

func TestReportServiceCreateJobMarksFailedOnEnqueueError(t *testing.T) {
	store := newFakeReportStore()
	queue := &fakeDispatcher{fail: true}
	svc := NewReportService(store, queue, nil, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.GenerateReportRequest{
		Type:   models.ReportTypeDueContacts,
		Format: models.ReportFormatPDF,
	}, "admin-1")
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceCreateJobValidatesType(t *testing.T) {
	svc := NewReportService(newFakeReportStore(), &fakeDispatcher{}, nil, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.GenerateReportRequest{
		Type:   models.ReportType("bogus"),
		Format: models.ReportFormatCSV,
	}, "admin-1")
	require.Error(t, err)
}

func TestReportWorkerFinishesJob(t *testing.T) {
	store := newFakeReportStore()
	job := &models.ReportJob{
		Type:   models.ReportTypeUnpaidBookings,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
		Status: models.ReportStatusQueued,
	}
	require.NoError(t, store.Create(context.Background(), job))

	generator := &fakeGenerator{result: &ExportResult{
		RelativePath: "unpaid_bookings_x.csv",
		Token:        "tok",
		URL:          "/api/v1/reports/download/tok",
		Format:       models.ReportFormatCSV,
	}}
	worker := NewReportWorker(store, generator, 3, nil)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID}))

	stored := store.jobs[job.ID]
	assert.Equal(t, models.ReportStatusFinished, stored.Status)
	require.NotNil(t, stored.ResultURL)
	assert.Equal(t, "/api/v1/reports/download/tok", *stored.ResultURL)
	require.NotNil(t, stored.FinishedAt)
}

func TestReportWorkerFailsAfterRetries(t *testing.T) {
	store := newFakeReportStore()
	job := &models.ReportJob{
		Type:   models.ReportTypeDueContacts,
		Params: models.ReportJobParams{Format: models.ReportFormatPDF},
		Status: models.ReportStatusQueued,
	}
	require.NoError(t, store.Create(context.Background(), job))

	generator := &fakeGenerator{err: fmt.Errorf("render exploded")}
	worker := NewReportWorker(store, generator, 2, nil)

	// Attempts below the cap requeue the job.
	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 0}))
	assert.Equal(t, models.ReportStatusQueued, store.jobs[job.ID].Status)

	// At the cap the job is marked failed for good.
	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 2}))
	stored := store.jobs[job.ID]
	assert.Equal(t, models.ReportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "render exploded")
}
