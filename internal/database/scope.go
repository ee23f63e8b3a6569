package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// psql builds statements with $n placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const setOwnerSQL = "SELECT set_config('app.current_user_id', $1, true)"

// Querier is the subset of *sql.Tx used inside a scope
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Scope binds storage access to one owner. Every statement run through a
// scope executes in a transaction whose app.current_user_id is the owner, so
// the row policies on profiles and tasks apply, and the builders below add
// the same owner predicate to the statement itself.
type Scope struct {
	db      *DB
	ownerID uuid.UUID
}

// ForUser returns the scope for ownerID
func (db *DB) ForUser(ownerID uuid.UUID) *Scope {
	return &Scope{db: db, ownerID: ownerID}
}

// OwnerID returns the scoped owner
func (s *Scope) OwnerID() uuid.UUID {
	return s.ownerID
}

// Do runs fn in a transaction bound to the owner. The transaction commits when
// fn returns nil and rolls back otherwise.
func (s *Scope) Do(ctx context.Context, fn func(q Querier) error) error {
	if s.ownerID == uuid.Nil {
		return fmt.Errorf("%w: no owner bound", ErrForbidden)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	if _, err := tx.ExecContext(ctx, setOwnerSQL, s.ownerID.String()); err != nil {
		_ = tx.Rollback()
		return mapError("bind owner", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// Select starts an owner-filtered SELECT on table
func (s *Scope) Select(table string, columns ...string) sq.SelectBuilder {
	return psql.Select(columns...).From(table).Where(sq.Eq{"user_id": s.ownerID})
}

// Update starts an owner-filtered UPDATE on table
func (s *Scope) Update(table string) sq.UpdateBuilder {
	return psql.Update(table).Where(sq.Eq{"user_id": s.ownerID})
}

// Delete starts an owner-filtered DELETE on table
func (s *Scope) Delete(table string) sq.DeleteBuilder {
	return psql.Delete(table).Where(sq.Eq{"user_id": s.ownerID})
}

// Insert starts an INSERT on table. Callers must set user_id to OwnerID; the
// row policy rejects any other value.
func (s *Scope) Insert(table string) sq.InsertBuilder {
	return psql.Insert(table)
}
