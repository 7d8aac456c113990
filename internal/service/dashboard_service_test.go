package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripetiamo/backoffice-api/internal/models"
)

type fakeDashboardBookings struct {
	unpaidKeys map[string]struct{}
	unpaid     []models.Booking
	unmatched  []models.Booking
}

func (f *fakeDashboardBookings) UnpaidKeys(ctx context.Context) (map[string]struct{}, []models.Booking, error) {
	return f.unpaidKeys, f.unpaid, nil
}

func (f *fakeDashboardBookings) Unmatched(ctx context.Context) ([]models.Booking, error) {
	return f.unmatched, nil
}

type fakeCalendarBookings struct {
	bookings []models.Booking
}

func (f *fakeCalendarBookings) ListActiveFrom(ctx context.Context, from time.Time) ([]models.Booking, error) {
	return f.bookings, nil
}

func TestDashboardServiceOverviewComposesAllSections(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	overdue := now.AddDate(0, 0, -1)
	upcoming := now.AddDate(0, 0, 4)

	contacts := &fakeContactRepo{contacts: []models.Contact{
		{ID: "c1", Name: "Marco", Status: models.ContactStatusActive, NextFollowUpAt: &overdue},
		{ID: "c2", Name: "Giulia", Status: models.ContactStatusActive, NextFollowUpAt: &upcoming},
	}}
	bookings := &fakeDashboardBookings{
		unpaidKeys: map[string]struct{}{"b2": {}},
		unpaid: []models.Booking{
			{ID: "b2", StudentEmail: "anna@example.com", StartsAt: now.Add(48 * time.Hour), Status: models.BookingStatusConfirmed},
		},
		unmatched: []models.Booking{
			{ID: "b9", StudentEmail: "stranger@example.com", StartsAt: now.Add(24 * time.Hour), Status: models.BookingStatusConfirmed},
		},
	}
	calendar := &fakeCalendarBookings{bookings: []models.Booking{
		{ID: "b1", StartsAt: now.Add(26 * time.Hour), Status: models.BookingStatusConfirmed},
		{ID: "b2", StartsAt: now.Add(48 * time.Hour), Status: models.BookingStatusConfirmed},
	}}

	svc := NewDashboardService(DashboardServiceParams{
		Contacts:  contacts,
		Bookings:  bookings,
		Calendar:  calendar,
		FollowUps: NewFollowUpService(FollowUpConfig{}, nil),
		Ledger:    NewLedgerService(LedgerConfig{}, nil),
		Now:       func() time.Time { return now },
	})

	overview, cached, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, "2025-06-10", overview.ReferenceDay)
	assert.Equal(t, 1, overview.DueContacts.Total)
	require.Len(t, overview.DueContacts.Head, 1)
	assert.Equal(t, "c1", overview.DueContacts.Head[0].ID)

	assert.Equal(t, 1, overview.UnpaidBookings.Total)
	assert.Equal(t, []string{"b2"}, overview.UnpaidBookings.Keys)
	assert.Equal(t, 1, overview.UnpaidBookings.Unmatched)

	require.Len(t, overview.UpcomingBookings, 2)
	assert.Equal(t, "2025-06", overview.Month.Month)
	assert.Len(t, overview.Month.Cells, 42)
	assert.Equal(t, 1, overview.Month.Bookings["2025-06-11"])
	assert.Equal(t, 1, overview.Month.Bookings["2025-06-12"])
}

func TestDashboardServiceMonthGridCounts(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	calendar := &fakeCalendarBookings{bookings: []models.Booking{
		{ID: "b1", StartsAt: time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)},
		{ID: "b2", StartsAt: time.Date(2025, 6, 3, 16, 0, 0, 0, time.UTC)},
	}}
	svc := NewDashboardService(DashboardServiceParams{
		Contacts:  &fakeContactRepo{},
		Bookings:  &fakeDashboardBookings{},
		Calendar:  calendar,
		FollowUps: NewFollowUpService(FollowUpConfig{}, nil),
		Ledger:    NewLedgerService(LedgerConfig{}, nil),
		Now:       func() time.Time { return now },
	})

	view, err := svc.Month(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "2025-06", view.Month)
	require.Len(t, view.Cells, 42)
	// June 2025 opens on a Sunday, so the grid starts the previous Monday.
	assert.Equal(t, "2025-05-26", view.Cells[0].DayKey)
	assert.False(t, view.Cells[0].InCurrentMonth)
	assert.Equal(t, 2, view.Bookings["2025-06-03"])
}
