package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripetiamo/backoffice-api/internal/models"
	"github.com/ripetiamo/backoffice-api/pkg/storage"
)

type memStorage struct {
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (m *memStorage) Save(filename string, data []byte) (string, error) {
	m.files[filename] = data
	return filename, nil
}

func (m *memStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *memStorage) Delete(filename string) error {
	delete(m.files, filename)
	return nil
}

func (m *memStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type fakeBucketProvider struct {
	buckets models.ContactBuckets
	gotDay  time.Time
}

func (f *fakeBucketProvider) Buckets(ctx context.Context, referenceDay time.Time, includeCompleted bool) (*models.ContactBuckets, error) {
	f.gotDay = referenceDay
	return &f.buckets, nil
}

func newExportServiceFixture(bookings unpaidBookingProvider, contacts contactBucketProvider, store fileStorage) *ExportService {
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(bookings, contacts, store, signer, ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)
}

func TestExportServiceGeneratesUnpaidBookingsCSV(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	bookings := &fakeDashboardBookings{
		unpaidKeys: map[string]struct{}{"b2": {}},
		unpaid: []models.Booking{
			{ID: "b2", StudentEmail: "anna@example.com", CallTypeSlug: "lesson", DurationMinutes: 60, StartsAt: now.Add(48 * time.Hour), Status: models.BookingStatusConfirmed},
		},
	}
	store := newMemStorage()
	svc := newExportServiceFixture(bookings, &fakeBucketProvider{}, store)

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeUnpaidBookings,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/reports/download/"))
	assert.Equal(t, models.ReportFormatCSV, result.Format)

	require.Len(t, store.files, 1)
	var content string
	for _, data := range store.files {
		content = string(data)
	}
	assert.Contains(t, content, "anna@example.com")
	assert.Contains(t, content, "lesson")

	// The signed token round-trips to the stored path.
	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportServiceDueContactsHonoursReferenceDay(t *testing.T) {
	next := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	contacts := &fakeBucketProvider{buckets: models.ContactBuckets{
		Due: []models.Contact{
			{ID: "c1", Name: "Marco", Phone: "+393331234567", NextFollowUpAt: &next},
		},
	}}
	store := newMemStorage()
	svc := newExportServiceFixture(&fakeDashboardBookings{}, contacts, store)

	job := &models.ReportJob{
		ID:   "job-2",
		Type: models.ReportTypeDueContacts,
		Params: models.ReportJobParams{
			ReferenceDay: "2025-06-10",
			Format:       models.ReportFormatCSV,
		},
	}
	_, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), contacts.gotDay)

	var content string
	for _, data := range store.files {
		content = string(data)
	}
	assert.Contains(t, content, "Marco")
	assert.Contains(t, content, "+393331234567")
}

func TestExportServiceRejectsUnknownType(t *testing.T) {
	svc := newExportServiceFixture(&fakeDashboardBookings{}, &fakeBucketProvider{}, newMemStorage())
	_, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportType("unknown"),
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	})
	require.Error(t, err)
}
