package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
)

// Settings tables are instance-wide and managed by the configure CLI; they
// carry no owner.
const defaultConfigKey = "default"

// RatelimitConfigRepository handles rate limit configuration in the database.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get returns the stored rate, or nil when none is set.
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	query, args, err := psql.Select("config_key", "rate", "created_at", "updated_at").
		From("ratelimit_config").
		Where(sq.Eq{"config_key": defaultConfigKey}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build ratelimit query: %w", err)
	}
	c := &models.RatelimitConfig{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("get ratelimit config", err)
	}
	return c, nil
}

// Set upserts the rate. Format: "5-S", "100-M", "1000-H".
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	now := time.Now()
	query, args, err := psql.Insert("ratelimit_config").
		Columns("config_key", "rate", "created_at", "updated_at").
		Values(defaultConfigKey, rate, now, now).
		Suffix("ON CONFLICT (config_key) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build ratelimit upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return mapError("set ratelimit config", err)
	}
	return nil
}

// CorsConfigRepository handles CORS configuration in the database.
type CorsConfigRepository struct {
	db *DB
}

// NewCorsConfigRepository creates a new CORS config repository.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db}
}

// Get returns the stored CORS config, or nil when none is set.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	query, args, err := psql.Select("config_key", "allowed_origins", "allow_credentials", "max_age", "created_at", "updated_at").
		From("cors_config").
		Where(sq.Eq{"config_key": defaultConfigKey}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build cors query: %w", err)
	}
	c := &models.CorsConfig{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ConfigKey, &c.AllowedOrigins, &c.AllowCredentials, &c.MaxAge, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("get cors config", err)
	}
	return c, nil
}

// Set upserts the CORS config. AllowedOrigins is comma-separated.
func (r *CorsConfigRepository) Set(ctx context.Context, c *models.CorsConfig) error {
	origins := strings.Join(AllowedOriginsSlice(c.AllowedOrigins), ",")
	if origins == "" {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	now := time.Now()
	query, args, err := psql.Insert("cors_config").
		Columns("config_key", "allowed_origins", "allow_credentials", "max_age", "created_at", "updated_at").
		Values(defaultConfigKey, origins, c.AllowCredentials, c.MaxAge, now, now).
		Suffix(`ON CONFLICT (config_key) DO UPDATE SET
			allowed_origins = EXCLUDED.allowed_origins,
			allow_credentials = EXCLUDED.allow_credentials,
			max_age = EXCLUDED.max_age,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cors upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return mapError("set cors config", err)
	}
	return nil
}

// AllowedOriginsSlice splits a comma-separated origin list, trimming and
// dropping blanks and duplicates.
func AllowedOriginsSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		s := strings.TrimSpace(p)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// OIDCConfigRepository handles external identity provider configuration
type OIDCConfigRepository struct {
	db *DB
}

// NewOIDCConfigRepository creates a new OIDC config repository
func NewOIDCConfigRepository(db *DB) *OIDCConfigRepository {
	return &OIDCConfigRepository{db: db}
}

var oidcColumns = []string{"id", "provider", "issuer", "client_id", "client_secret", "redirect_uri", "jwks_url", "created_at", "updated_at"}

// Upsert creates or replaces the configuration for config.Provider
func (r *OIDCConfigRepository) Upsert(ctx context.Context, config *models.OIDCConfig) error {
	if config.ID == uuid.Nil {
		config.ID = uuid.New()
	}
	now := time.Now()
	query, args, err := psql.Insert("oidc_config").
		Columns(oidcColumns...).
		Values(config.ID, config.Provider, config.Issuer, config.ClientID, config.ClientSecret, config.RedirectURI, config.JWKSUrl, now, now).
		Suffix(`ON CONFLICT (provider) DO UPDATE SET
			issuer = EXCLUDED.issuer,
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			redirect_uri = EXCLUDED.redirect_uri,
			jwks_url = EXCLUDED.jwks_url,
			updated_at = EXCLUDED.updated_at
			RETURNING id, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build oidc upsert: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&config.ID, &config.CreatedAt, &config.UpdatedAt); err != nil {
		return mapError("upsert oidc config", err)
	}
	return nil
}

// GetByProvider returns the configuration for provider or ErrNotFound
func (r *OIDCConfigRepository) GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error) {
	query, args, err := psql.Select(oidcColumns...).From("oidc_config").Where(sq.Eq{"provider": provider}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build oidc query: %w", err)
	}
	c, err := scanOIDCConfig(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError("get oidc config", err)
	}
	return c, nil
}

// GetAll returns every configured provider ordered by name
func (r *OIDCConfigRepository) GetAll(ctx context.Context) ([]*models.OIDCConfig, error) {
	query, args, err := psql.Select(oidcColumns...).From("oidc_config").OrderBy("provider").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build oidc query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("query oidc configs", err)
	}
	defer func() { _ = rows.Close() }()

	var configs []*models.OIDCConfig
	for rows.Next() {
		c, err := scanOIDCConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan oidc config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate oidc configs", err)
	}
	return configs, nil
}

// Delete removes the configuration for provider
func (r *OIDCConfigRepository) Delete(ctx context.Context, provider string) error {
	query, args, err := psql.Delete("oidc_config").Where(sq.Eq{"provider": provider}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build oidc delete: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError("delete oidc config", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOIDCConfig(row rowScanner) (*models.OIDCConfig, error) {
	c := &models.OIDCConfig{}
	var secret, jwks sql.NullString
	if err := row.Scan(&c.ID, &c.Provider, &c.Issuer, &c.ClientID, &secret, &c.RedirectURI, &jwks, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if secret.Valid {
		c.ClientSecret = &secret.String
	}
	if jwks.Valid {
		c.JWKSUrl = &jwks.String
	}
	return c, nil
}
