package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return Wrap(sqlDB), mock
}

// expectOwner registers the transaction prologue every scoped call performs.
func expectOwner(mock sqlmock.Sqlmock, ownerID uuid.UUID) {
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config\('app\.current_user_id', \$1, true\)`).
		WithArgs(ownerID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

var testTaskColumns = []string{
	"id", "user_id", "title", "description", "due_at", "priority",
	"category", "completed", "completed_at", "created_at", "updated_at",
}

func taskRow(rows *sqlmock.Rows, id, owner uuid.UUID, title string, due *time.Time, completed bool) *sqlmock.Rows {
	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	var dueVal, completedAt any
	if due != nil {
		dueVal = *due
	}
	if completed {
		completedAt = created.Add(time.Hour)
	}
	return rows.AddRow(id.String(), owner.String(), title, nil, dueVal, "high", "{work,study}", completed, completedAt, created, created)
}
