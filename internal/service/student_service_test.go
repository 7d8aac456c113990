package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripetiamo/backoffice-api/internal/models"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
)

type fakeStudentRepo struct {
	students map[string]*models.Student
	topUps   map[string]float64
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{
		students: make(map[string]*models.Student),
		topUps:   make(map[string]float64),
	}
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "st-created"
	}
	f.students[student.ID] = student
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	f.students[student.ID] = student
	return nil
}

func (f *fakeStudentRepo) TopUpHours(ctx context.Context, id string, hours float64, ts time.Time) error {
	s, ok := f.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.HoursPaid += hours
	remaining := s.HoursPaid - s.HoursConsumed
	if remaining < 0 {
		remaining = 0
	}
	s.RemainingPaidHours = &remaining
	f.topUps[id] += hours
	return nil
}

func newStudentServiceFixture(repo *fakeStudentRepo, now time.Time) *StudentService {
	ledger := NewLedgerService(LedgerConfig{}, nil)
	return NewStudentService(repo, ledger, nil, nil, nil, func() time.Time { return now })
}

func TestStudentServiceBalanceDerivesRemaining(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	repo := newFakeStudentRepo()
	repo.students["st-1"] = &models.Student{ID: "st-1", Email: "anna@example.com", HoursPaid: 10, HoursConsumed: 7.5}
	svc := newStudentServiceFixture(repo, now)

	balance, err := svc.Balance(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, 150, balance.RemainingMinutes)
	assert.InDelta(t, 2.5, balance.RemainingHours, 1e-9)
}

func TestStudentServiceTopUpRefreshesBalance(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	repo := newFakeStudentRepo()
	repo.students["st-1"] = &models.Student{ID: "st-1", Email: "anna@example.com", HoursPaid: 1, HoursConsumed: 1}
	svc := newStudentServiceFixture(repo, now)

	balance, err := svc.TopUp(context.Background(), "st-1", TopUpRequest{Hours: 5})
	require.NoError(t, err)
	assert.Equal(t, 300, balance.RemainingMinutes)
	assert.InDelta(t, 5, repo.topUps["st-1"], 1e-9)
}

func TestStudentServiceTopUpRejectsNonPositiveHours(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	repo := newFakeStudentRepo()
	repo.students["st-1"] = &models.Student{ID: "st-1", Email: "anna@example.com"}
	svc := newStudentServiceFixture(repo, now)

	_, err := svc.TopUp(context.Background(), "st-1", TopUpRequest{Hours: 0})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceCreateSeedsProjection(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	repo := newFakeStudentRepo()
	svc := newStudentServiceFixture(repo, now)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName:  "Anna Rossi",
		Email:     "anna@example.com",
		HoursPaid: 4,
	})
	require.NoError(t, err)
	require.NotNil(t, student.RemainingPaidHours)
	assert.InDelta(t, 4, *student.RemainingPaidHours, 1e-9)
	assert.True(t, student.Active)
}

func TestStudentServiceGetMissing(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	svc := newStudentServiceFixture(newFakeStudentRepo(), now)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
