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

type fakeBookingRepo struct {
	bookings []models.Booking
	created  []models.Booking
	statuses map[string]models.BookingStatus
}

func (f *fakeBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	return f.bookings, len(f.bookings), nil
}

func (f *fakeBookingRepo) ListActiveFrom(ctx context.Context, from time.Time) ([]models.Booking, error) {
	active := make([]models.Booking, 0, len(f.bookings))
	for _, b := range f.bookings {
		if b.Status == models.BookingStatusCompleted || b.Status == models.BookingStatusCancelled {
			continue
		}
		if b.StartsAt.Before(from) {
			continue
		}
		active = append(active, b)
	}
	return active, nil
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			return &f.bookings[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = "generated"
	}
	f.created = append(f.created, *booking)
	f.bookings = append(f.bookings, *booking)
	return nil
}

func (f *fakeBookingRepo) Update(ctx context.Context, booking *models.Booking) error {
	for i := range f.bookings {
		if f.bookings[i].ID == booking.ID {
			f.bookings[i] = *booking
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeBookingRepo) UpdateStatus(ctx context.Context, id string, status models.BookingStatus, ts time.Time) error {
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].Status = status
			if f.statuses == nil {
				f.statuses = make(map[string]models.BookingStatus)
			}
			f.statuses[id] = status
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeStudentReader struct {
	students []models.Student
	consumed map[string]float64
}

func (f *fakeStudentReader) ListAll(ctx context.Context) ([]models.Student, error) {
	return f.students, nil
}

func (f *fakeStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for i := range f.students {
		if f.students[i].ID == id {
			return &f.students[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentReader) ConsumeHours(ctx context.Context, id string, hours float64, ts time.Time) error {
	if f.consumed == nil {
		f.consumed = make(map[string]float64)
	}
	f.consumed[id] += hours
	return nil
}

type fakeCallTypeReader struct {
	callTypes []models.CallType
}

func (f *fakeCallTypeReader) ListAll(ctx context.Context) ([]models.CallType, error) {
	return f.callTypes, nil
}

func newBookingServiceFixture(t *testing.T, repo *fakeBookingRepo, students *fakeStudentReader, now time.Time) *BookingService {
	t.Helper()
	callTypes := &fakeCallTypeReader{callTypes: []models.CallType{
		{Slug: "lesson", Name: "Lesson", DurationMinutes: 60, Active: true},
	}}
	ledger := NewLedgerService(LedgerConfig{}, nil)
	return NewBookingService(repo, students, callTypes, ledger, nil, nil, nil, nil, func() time.Time { return now })
}

func TestBookingServiceCreateRejectsUnpaidWithoutConfirm(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	students := &fakeStudentReader{students: []models.Student{
		{ID: "st-1", Email: "anna@example.com", HoursPaid: 1},
	}}
	repo := &fakeBookingRepo{bookings: []models.Booking{
		{ID: "b1", StudentID: strPtr("st-1"), CallTypeSlug: "lesson", StartsAt: now.Add(24 * time.Hour), Status: models.BookingStatusConfirmed},
	}}
	svc := newBookingServiceFixture(t, repo, students, now)

	_, err := svc.Create(context.Background(), CreateBookingRequest{
		StudentID:    strPtr("st-1"),
		CallTypeSlug: "lesson",
		StartsAt:     now.Add(48 * time.Hour),
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnpaidBooking.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestBookingServiceCreateAllowsUnpaidWhenConfirmed(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	students := &fakeStudentReader{students: []models.Student{
		{ID: "st-1", Email: "anna@example.com", HoursPaid: 1},
	}}
	repo := &fakeBookingRepo{bookings: []models.Booking{
		{ID: "b1", StudentID: strPtr("st-1"), CallTypeSlug: "lesson", StartsAt: now.Add(24 * time.Hour), Status: models.BookingStatusConfirmed},
	}}
	svc := newBookingServiceFixture(t, repo, students, now)

	view, err := svc.Create(context.Background(), CreateBookingRequest{
		StudentID:     strPtr("st-1"),
		CallTypeSlug:  "lesson",
		StartsAt:      now.Add(48 * time.Hour),
		ConfirmUnpaid: true,
	})
	require.NoError(t, err)
	assert.True(t, view.IsUnpaid)
	require.Len(t, repo.created, 1)
}

func TestBookingServiceCreateCoveredBookingPasses(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	students := &fakeStudentReader{students: []models.Student{
		{ID: "st-1", Email: "anna@example.com", HoursPaid: 2},
	}}
	repo := &fakeBookingRepo{}
	svc := newBookingServiceFixture(t, repo, students, now)

	view, err := svc.Create(context.Background(), CreateBookingRequest{
		StudentID:    strPtr("st-1"),
		CallTypeSlug: "lesson",
		StartsAt:     now.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, view.IsUnpaid)
	assert.False(t, view.Unmatched)
}

func TestBookingServiceCreateUnmatchedEmailIsStoredAndFlagged(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	students := &fakeStudentReader{}
	repo := &fakeBookingRepo{}
	svc := newBookingServiceFixture(t, repo, students, now)

	view, err := svc.Create(context.Background(), CreateBookingRequest{
		StudentEmail: "unknown@example.com",
		CallTypeSlug: "lesson",
		StartsAt:     now.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, view.Unmatched)
	assert.False(t, view.IsUnpaid)
	require.Len(t, repo.created, 1)
	assert.Nil(t, repo.created[0].StudentID)
}

func TestBookingServicePreviewMatchesCreateDecision(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	students := &fakeStudentReader{students: []models.Student{
		{ID: "st-1", Email: "anna@example.com", HoursPaid: 1.5},
	}}
	repo := &fakeBookingRepo{bookings: []models.Booking{
		{ID: "b1", StudentID: strPtr("st-1"), CallTypeSlug: "lesson", StartsAt: now.Add(24 * time.Hour), Status: models.BookingStatusConfirmed},
	}}
	svc := newBookingServiceFixture(t, repo, students, now)

	preview, err := svc.PreviewUnpaid(context.Background(), PreviewUnpaidRequest{
		StudentID:    strPtr("st-1"),
		CallTypeSlug: "lesson",
		StartsAt:     now.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, preview.WouldBeUnpaid)
	assert.Equal(t, 90, preview.RemainingMinutes)
	assert.Equal(t, 60, preview.DurationMinutes)

	_, err = svc.Create(context.Background(), CreateBookingRequest{
		StudentID:    strPtr("st-1"),
		CallTypeSlug: "lesson",
		StartsAt:     now.Add(48 * time.Hour),
	})
	require.Error(t, err)
}

func TestBookingServiceListAnnotatesUnpaid(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	students := &fakeStudentReader{students: []models.Student{
		{ID: "st-1", Email: "anna@example.com", HoursPaid: 1},
	}}
	repo := &fakeBookingRepo{bookings: []models.Booking{
		{ID: "b1", StudentID: strPtr("st-1"), CallTypeSlug: "lesson", StartsAt: now.Add(24 * time.Hour), Status: models.BookingStatusConfirmed},
		{ID: "b2", StudentID: strPtr("st-1"), CallTypeSlug: "lesson", StartsAt: now.Add(48 * time.Hour), Status: models.BookingStatusConfirmed},
	}}
	svc := newBookingServiceFixture(t, repo, students, now)

	views, pagination, err := svc.List(context.Background(), models.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.False(t, views[0].IsUnpaid)
	assert.True(t, views[1].IsUnpaid)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestBookingServiceCompleteConsumesHours(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	students := &fakeStudentReader{students: []models.Student{
		{ID: "st-1", Email: "anna@example.com", HoursPaid: 5, HoursConsumed: 1},
	}}
	repo := &fakeBookingRepo{bookings: []models.Booking{
		{ID: "b1", StudentID: strPtr("st-1"), CallTypeSlug: "lesson", DurationMinutes: 90, StartsAt: now.Add(-time.Hour), Status: models.BookingStatusConfirmed},
	}}
	svc := newBookingServiceFixture(t, repo, students, now)

	require.NoError(t, svc.Complete(context.Background(), "b1"))
	assert.Equal(t, models.BookingStatusCompleted, repo.statuses["b1"])
	assert.InDelta(t, 1.5, students.consumed["st-1"], 1e-9)

	// Completing twice is a no-op.
	require.NoError(t, svc.Complete(context.Background(), "b1"))
	assert.InDelta(t, 1.5, students.consumed["st-1"], 1e-9)
}

func TestBookingServiceCancelMissingBooking(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := newBookingServiceFixture(t, &fakeBookingRepo{}, &fakeStudentReader{}, now)

	err := svc.Cancel(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
