package database

import (
	"context"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
)

// TaskRepositoryInterface is the owner-scoped task store used by handlers and workers
type TaskRepositoryInterface interface {
	Create(ctx context.Context, ownerID uuid.UUID, task *models.Task) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) ([]*models.Task, int, error)
	ListInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*models.Task, error)
	Update(ctx context.Context, ownerID uuid.UUID, task *models.Task) error
	ToggleCompletion(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (*models.Task, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// ProfileRepositoryInterface is the owner-scoped profile store
type ProfileRepositoryInterface interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error)
	UpdateName(ctx context.Context, ownerID uuid.UUID, name *string) (*models.Profile, error)
	Delete(ctx context.Context, ownerID uuid.UUID) error
}

// CredentialRepositoryInterface is the auth service's identity store
type CredentialRepositoryInterface interface {
	CreateWithProfile(ctx context.Context, cred *models.Credential, profile *models.Profile) error
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.Credential, error)
}

// OIDCConfigRepositoryInterface reads external identity provider settings
type OIDCConfigRepositoryInterface interface {
	GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface       = (*TaskRepository)(nil)
	_ ProfileRepositoryInterface    = (*ProfileRepository)(nil)
	_ CredentialRepositoryInterface = (*CredentialRepository)(nil)
	_ OIDCConfigRepositoryInterface = (*OIDCConfigRepository)(nil)
)
