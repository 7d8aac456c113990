package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripetiamo/backoffice-api/internal/models"
)

func contactRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "phone", "note", "student_id", "status", "next_follow_up_at", "last_contacted_at", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "Contact "+id, "+393331234567", "", nil, "active", time.Now(), nil, time.Now(), time.Now())
	}
	return rows
}

func TestContactRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM contacts WHERE 1=1 AND status = \$1 ORDER BY next_follow_up_at ASC NULLS FIRST LIMIT 50 OFFSET 0`).
		WithArgs("active").
		WillReturnRows(contactRows("c1", "c2"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contacts WHERE 1=1 AND status = \$1`).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	contacts, total, err := repo.List(context.Background(), models.ContactFilter{Status: "active"})
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec("UPDATE contacts SET").
		WithArgs("c1", "Anna", "+393331234567", "called twice", nil, models.ContactStatusActive,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	next := time.Now().AddDate(0, 0, 3)
	contact := &models.Contact{
		ID:             "c1",
		Name:           "Anna",
		Phone:          "+393331234567",
		Note:           "called twice",
		Status:         models.ContactStatusActive,
		NextFollowUpAt: &next,
	}
	err := repo.Update(context.Background(), contact)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
