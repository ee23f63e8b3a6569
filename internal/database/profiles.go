package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
)

// ProfileRepository handles profile rows. A profile is keyed by its owner id.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get returns the owner's profile
func (r *ProfileRepository) Get(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error) {
	query, args, err := psql.Select("id", "email", "name", "created_at", "updated_at").
		From("profiles").
		Where(sq.Eq{"id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build profile query: %w", err)
	}

	p := &models.Profile{}
	err = r.db.ForUser(ownerID).Do(ctx, func(q Querier) error {
		var name sql.NullString
		if err := q.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Email, &name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return mapError("get profile", err)
		}
		if name.Valid {
			p.Name = &name.String
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateName sets or clears the display name
func (r *ProfileRepository) UpdateName(ctx context.Context, ownerID uuid.UUID, name *string) (*models.Profile, error) {
	query, args, err := psql.Update("profiles").
		Set("name", name).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": ownerID}).
		Suffix("RETURNING id, email, name, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build profile update: %w", err)
	}

	p := &models.Profile{}
	err = r.db.ForUser(ownerID).Do(ctx, func(q Querier) error {
		var stored sql.NullString
		if err := q.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Email, &stored, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return mapError("update profile", err)
		}
		if stored.Valid {
			p.Name = &stored.String
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the profile. Tasks and credentials cascade.
func (r *ProfileRepository) Delete(ctx context.Context, ownerID uuid.UUID) error {
	query, args, err := psql.Delete("profiles").Where(sq.Eq{"id": ownerID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build profile delete: %w", err)
	}
	return r.db.ForUser(ownerID).Do(ctx, func(q Querier) error {
		result, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return mapError("delete profile", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CredentialRepository is the auth service's store of identities.
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// CreateWithProfile stores a new identity and its profile in one transaction
// bound to the new owner. A duplicate email or provider id yields ErrConflict.
func (r *CredentialRepository) CreateWithProfile(ctx context.Context, cred *models.Credential, profile *models.Profile) error {
	if cred.UserID == uuid.Nil {
		cred.UserID = uuid.New()
	}
	profile.ID = cred.UserID
	profile.Email = cred.Email
	now := time.Now()

	profileQuery, profileArgs, err := psql.Insert("profiles").
		Columns("id", "email", "name", "created_at", "updated_at").
		Values(profile.ID, profile.Email, profile.Name, now, now).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build profile insert: %w", err)
	}
	credQuery, credArgs, err := psql.Insert("credentials").
		Columns("user_id", "email", "password_hash", "provider_id", "created_at").
		Values(cred.UserID, cred.Email, cred.PasswordHash, cred.ProviderID, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build credential insert: %w", err)
	}

	return r.db.ForUser(cred.UserID).Do(ctx, func(q Querier) error {
		if err := q.QueryRowContext(ctx, profileQuery, profileArgs...).Scan(&profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return mapError("create profile", err)
		}
		if _, err := q.ExecContext(ctx, credQuery, credArgs...); err != nil {
			return mapError("create credential", err)
		}
		cred.CreatedAt = now
		return nil
	})
}

// GetByEmail looks up a credential case-insensitively
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return r.getOne(ctx, "get credential by email",
		sq.Expr("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))))
}

// GetByProviderID looks up a credential linked to an external identity
func (r *CredentialRepository) GetByProviderID(ctx context.Context, providerID string) (*models.Credential, error) {
	return r.getOne(ctx, "get credential by provider id", sq.Eq{"provider_id": providerID})
}

func (r *CredentialRepository) getOne(ctx context.Context, op string, pred sq.Sqlizer) (*models.Credential, error) {
	query, args, err := psql.Select("user_id", "email", "password_hash", "provider_id", "created_at").
		From("credentials").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build credential query: %w", err)
	}

	c := &models.Credential{}
	var hash, provider sql.NullString
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&c.UserID, &c.Email, &hash, &provider, &c.CreatedAt)
	if err != nil {
		return nil, mapError(op, err)
	}
	if hash.Valid {
		c.PasswordHash = &hash.String
	}
	if provider.Valid {
		c.ProviderID = &provider.String
	}
	return c, nil
}
