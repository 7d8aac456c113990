package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripetiamo/backoffice-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func bookingRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "slot_id", "student_id", "student_email", "call_type_slug", "starts_at", "duration_minutes", "status", "note", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "slot-"+id, "stu-1", "anna@example.com", "standard", time.Now(), 60, "confirmed", "", time.Now(), time.Now())
	}
	return rows
}

func TestBookingRepositoryListActiveFrom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE status NOT IN \(\$1, \$2\) AND starts_at >= \$3 ORDER BY starts_at ASC`).
		WithArgs(models.BookingStatusCompleted, models.BookingStatusCancelled, from).
		WillReturnRows(bookingRows("b1", "b2"))

	bookings, err := repo.ListActiveFrom(context.Background(), from)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE 1=1 AND student_id = \$1 ORDER BY starts_at ASC LIMIT 50 OFFSET 0`).
		WithArgs("stu-1").
		WillReturnRows(bookingRows("b1"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE 1=1 AND student_id = \$1`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	bookings, total, err := repo.List(context.Background(), models.BookingFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	booking := &models.Booking{
		StudentEmail:    "anna@example.com",
		CallTypeSlug:    "standard",
		StartsAt:        time.Now().Add(48 * time.Hour),
		DurationMinutes: 60,
		Status:          models.BookingStatusConfirmed,
	}
	err := repo.Create(context.Background(), booking)
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("missing", models.BookingStatusCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.BookingStatusCancelled, time.Now())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
