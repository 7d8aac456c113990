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

type fakeContactRepo struct {
	contacts []models.Contact
	updated  []models.Contact
	deleted  []string
}

func (f *fakeContactRepo) List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, int, error) {
	return f.contacts, len(f.contacts), nil
}

func (f *fakeContactRepo) ListAll(ctx context.Context) ([]models.Contact, error) {
	return f.contacts, nil
}

func (f *fakeContactRepo) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	for i := range f.contacts {
		if f.contacts[i].ID == id {
			return &f.contacts[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeContactRepo) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = "generated"
	}
	f.contacts = append(f.contacts, *contact)
	return nil
}

func (f *fakeContactRepo) Update(ctx context.Context, contact *models.Contact) error {
	for i := range f.contacts {
		if f.contacts[i].ID == contact.ID {
			f.contacts[i] = *contact
			f.updated = append(f.updated, *contact)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeContactRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeLeadCycleStore struct {
	upserts []models.LeadCycle
}

func (f *fakeLeadCycleStore) Upsert(ctx context.Context, cycle *models.LeadCycle) error {
	f.upserts = append(f.upserts, *cycle)
	return nil
}

func newContactServiceFixture(repo *fakeContactRepo, cycles *fakeLeadCycleStore, now time.Time) *ContactService {
	followUps := NewFollowUpService(FollowUpConfig{}, nil)
	return NewContactService(repo, cycles, followUps, nil, nil, nil, nil, func() time.Time { return now })
}

func TestContactServiceAdvanceSchedulesDefaultOffset(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	repo := &fakeContactRepo{contacts: []models.Contact{
		{ID: "c1", Name: "Marco", Status: models.ContactStatusActive},
	}}
	svc := newContactServiceFixture(repo, &fakeLeadCycleStore{}, now)

	contact, err := svc.Advance(context.Background(), "c1", TransitionRequest{})
	require.NoError(t, err)
	require.NotNil(t, contact.NextFollowUpAt)
	assert.Equal(t, now.AddDate(0, 0, 3), *contact.NextFollowUpAt)
	require.NotNil(t, contact.LastContactedAt)
	assert.Equal(t, now, *contact.LastContactedAt)
	require.Len(t, repo.updated, 1)
}

func TestContactServicePauseAndResumeKeepSchedule(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	next := now.AddDate(0, 0, 5)
	repo := &fakeContactRepo{contacts: []models.Contact{
		{ID: "c1", Name: "Marco", Status: models.ContactStatusActive, NextFollowUpAt: &next},
	}}
	svc := newContactServiceFixture(repo, &fakeLeadCycleStore{}, now)

	paused, err := svc.Pause(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.ContactStatusDropped, paused.Status)
	require.NotNil(t, paused.NextFollowUpAt)
	assert.Equal(t, next, *paused.NextFollowUpAt)

	resumed, err := svc.Resume(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.ContactStatusActive, resumed.Status)
	assert.Equal(t, next, *resumed.NextFollowUpAt)
}

func TestContactServiceRestartCycleUpsertsAtStepZero(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	repo := &fakeContactRepo{contacts: []models.Contact{
		{ID: "c1", Name: "Marco", Phone: "39 333 1234567", Status: models.ContactStatusActive},
	}}
	cycles := &fakeLeadCycleStore{}
	svc := newContactServiceFixture(repo, cycles, now)

	result, err := svc.RestartCycle(context.Background(), "c1", TransitionRequest{})
	require.NoError(t, err)
	require.Len(t, cycles.upserts, 1)
	cycle := cycles.upserts[0]
	assert.Equal(t, "+393331234567", cycle.Phone)
	assert.Equal(t, 0, cycle.CurrentStep)
	assert.Equal(t, models.LeadCycleStatusActive, cycle.Status)
	assert.Equal(t, now.AddDate(0, 0, 1), cycle.NextFollowUpAt)
	require.NotNil(t, result.Contact.NextFollowUpAt)
	assert.Equal(t, now.AddDate(0, 0, 3), *result.Contact.NextFollowUpAt)
}

func TestContactServiceRestartCycleRequiresPhone(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	repo := &fakeContactRepo{contacts: []models.Contact{
		{ID: "c1", Name: "Marco", Status: models.ContactStatusActive},
	}}
	cycles := &fakeLeadCycleStore{}
	svc := newContactServiceFixture(repo, cycles, now)

	_, err := svc.RestartCycle(context.Background(), "c1", TransitionRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidArgument.Code, appErr.Code)
	assert.Empty(t, cycles.upserts)
	assert.Empty(t, repo.updated)
}

func TestContactServiceBucketsUsesReferenceDay(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	overdue := now.AddDate(0, 0, -2)
	future := now.AddDate(0, 0, 9)
	repo := &fakeContactRepo{contacts: []models.Contact{
		{ID: "c1", Name: "Marco", Status: models.ContactStatusActive, NextFollowUpAt: &overdue},
		{ID: "c2", Name: "Giulia", Status: models.ContactStatusActive, NextFollowUpAt: &future},
	}}
	svc := newContactServiceFixture(repo, &fakeLeadCycleStore{}, now)

	buckets, err := svc.Buckets(context.Background(), time.Time{}, false)
	require.NoError(t, err)
	require.Len(t, buckets.Due, 1)
	assert.Equal(t, "c1", buckets.Due[0].ID)
	require.Len(t, buckets.Upcoming, 1)
	assert.Equal(t, "c2", buckets.Upcoming[0].ID)

	// With the reference day moved past the future date both contacts are due.
	later, err := svc.Buckets(context.Background(), now.AddDate(0, 0, 10), false)
	require.NoError(t, err)
	assert.Len(t, later.Due, 2)
}

func TestContactServiceGetMissing(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	svc := newContactServiceFixture(&fakeContactRepo{}, &fakeLeadCycleStore{}, now)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
