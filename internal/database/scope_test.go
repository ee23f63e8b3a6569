package database

import (
	"context"
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_Do_BindsOwnerAndCommits(t *testing.T) {
	db, mock := newMockDB(t)
	owner := uuid.New()

	expectOwner(mock, owner)
	mock.ExpectExec(`DELETE FROM tasks`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := db.ForUser(owner).Do(context.Background(), func(q Querier) error {
		_, err := q.ExecContext(context.Background(), "DELETE FROM tasks WHERE false")
		return err
	})
	require.NoError(t, err)
}

func TestScope_Do_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	owner := uuid.New()
	boom := errors.New("boom")

	expectOwner(mock, owner)
	mock.ExpectRollback()

	err := db.ForUser(owner).Do(context.Background(), func(q Querier) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestScope_Do_RejectsNilOwner(t *testing.T) {
	db, _ := newMockDB(t)

	called := false
	err := db.ForUser(uuid.Nil).Do(context.Background(), func(q Querier) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.False(t, called)
}

func TestScope_BuildersCarryOwnerPredicate(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	scope := (&DB{}).ForUser(owner)

	tests := []struct {
		name string
		b    sq.Sqlizer
		want string
	}{
		{"select", scope.Select("tasks", "id").Where(sq.Eq{"id": 1}), "SELECT id FROM tasks WHERE user_id = $1 AND id = $2"},
		{"update", scope.Update("tasks").Set("title", "x"), "UPDATE tasks SET title = $1 WHERE user_id = $2"},
		{"delete", scope.Delete("tasks"), "DELETE FROM tasks WHERE user_id = $1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sql, args, err := tt.b.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
			assert.Contains(t, args, owner.String())
		})
	}
}
