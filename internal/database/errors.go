package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the owner
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique constraint violations
	ErrConflict = errors.New("already exists")
	// ErrForbidden is returned when a row policy rejects a write
	ErrForbidden = errors.New("access denied by row policy")
	// ErrCredentialExpired is returned when the storage layer rejects an expired credential
	ErrCredentialExpired = errors.New("credential expired")
)

// CredentialExpiredMessage is shown to users in place of raw expiry errors
const CredentialExpiredMessage = "Your session has expired. Please sign in again."

// postgres SQLSTATE codes mapped below
const (
	pgUniqueViolation       = "23505"
	pgInsufficientPrivilege = "42501"
	pgInvalidAuthorization  = "28000"
)

// StorageError carries a storage failure with its message intact
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// mapError translates driver errors into package sentinels. Unrecognized
// errors are wrapped in a StorageError naming op.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrForbidden, ErrCredentialExpired} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case pgInsufficientPrivilege:
			return fmt.Errorf("%w: %s", ErrForbidden, pqErr.Message)
		case pgInvalidAuthorization:
			return fmt.Errorf("%w: %s", ErrCredentialExpired, pqErr.Message)
		}
	}
	if isExpiredCredentialMessage(err.Error()) {
		return fmt.Errorf("%w: %s", ErrCredentialExpired, err.Error())
	}

	return &StorageError{Op: op, Err: err}
}

func isExpiredCredentialMessage(msg string) bool {
	msg = strings.ToLower(msg)
	if !strings.Contains(msg, "expired") {
		return false
	}
	return strings.Contains(msg, "jwt") || strings.Contains(msg, "token") || strings.Contains(msg, "credential")
}

// UserMessage returns the message suitable for showing to the caller
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrCredentialExpired):
		return CredentialExpiredMessage
	case errors.Is(err, ErrNotFound):
		return "Resource not found"
	case errors.Is(err, ErrConflict):
		return "Resource already exists"
	case errors.Is(err, ErrForbidden):
		return "Access denied"
	default:
		var se *StorageError
		if errors.As(err, &se) {
			return se.Err.Error()
		}
		return err.Error()
	}
}
