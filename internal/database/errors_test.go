package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("x: %w", sql.ErrNoRows), ErrNotFound},
		{"unique violation", &pq.Error{Code: "23505"}, ErrConflict},
		{"row policy", &pq.Error{Code: "42501"}, ErrForbidden},
		{"invalid authorization", &pq.Error{Code: "28000", Message: "token rejected"}, ErrCredentialExpired},
		{"expired jwt message", errors.New("JWT expired at 2025-06-01"), ErrCredentialExpired},
		{"sentinel passes through", ErrNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, mapError("op", tt.err), tt.target)
		})
	}
}

func TestMapError_Other(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapError("op", nil))

	err := mapError("list tasks", errors.New("connection reset by peer"))
	var se *StorageError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "failed to list tasks: connection reset by peer", err.Error())
	assert.Equal(t, "connection reset by peer", UserMessage(err))

	// a message mentioning expiry alone is not a credential problem
	assert.NotErrorIs(t, mapError("op", context.DeadlineExceeded), ErrCredentialExpired)
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CredentialExpiredMessage, UserMessage(fmt.Errorf("%w: jwt expired", ErrCredentialExpired)))
	assert.Equal(t, "Resource not found", UserMessage(ErrNotFound))
	assert.Equal(t, "Resource already exists", UserMessage(fmt.Errorf("%w: x", ErrConflict)))
}
