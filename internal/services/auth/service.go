// Package auth implements email/password accounts and session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/benvon/todo-assistant/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password in characters
const MinPasswordLength = 8

var (
	// ErrInvalidCredentials is returned for any failed login, whatever the cause
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an address that already has an account
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// ValidationError is a rejected registration field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Session is an issued session token
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
}

// Service registers and authenticates users
type Service struct {
	creds  database.CredentialRepositoryInterface
	tokens *TokenManager
	cost   int
	logger *zap.Logger

	// dummyHash keeps unknown-email logins as slow as wrong-password ones
	dummyHash []byte
}

// NewService creates an auth service
func NewService(creds database.CredentialRepositoryInterface, tokens *TokenManager, bcryptCost int, log *zap.Logger) (*Service, error) {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = zap.NewNop()
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hashing: %w", err)
	}
	return &Service{creds: creds, tokens: tokens, cost: bcryptCost, logger: log, dummyHash: dummy}, nil
}

// Tokens exposes the token manager for the auth middleware
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Register creates an account and its profile and signs the user in
func (s *Service) Register(ctx context.Context, email, password string, name *string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	cred := &models.Credential{Email: email, PasswordHash: &hashStr}
	profile := &models.Profile{Name: trimmedName(name)}
	if err := s.creds.CreateWithProfile(ctx, cred, profile); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("user_registered",
		zap.String("user_id", logger.SanitizeUserID(cred.UserID.String())),
		zap.String("email", logger.MaskEmail(email)),
	)
	return s.issue(cred.UserID, email)
}

// Login checks an email/password pair. Every failure looks the same to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	if cred == nil || cred.PasswordHash == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.Info("login_failed", zap.String("email", logger.MaskEmail(email)), zap.String("reason", "unknown_account"))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*cred.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login_failed", zap.String("email", logger.MaskEmail(email)), zap.String("reason", "password_mismatch"))
		return nil, ErrInvalidCredentials
	}

	return s.issue(cred.UserID, cred.Email)
}

// SignInExternal finds or creates the account linked to an external identity
func (s *Service) SignInExternal(ctx context.Context, provider, subject, email string, name *string) (*Session, error) {
	if subject == "" {
		return nil, fmt.Errorf("external identity has no subject")
	}
	providerID := provider + ":" + subject

	cred, err := s.creds.GetByProviderID(ctx, providerID)
	if err == nil {
		return s.issue(cred.UserID, cred.Email)
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up external identity: %w", err)
	}

	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	cred = &models.Credential{Email: email, ProviderID: &providerID}
	if err := s.creds.CreateWithProfile(ctx, cred, &models.Profile{Name: trimmedName(name)}); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("user_registered",
		zap.String("user_id", logger.SanitizeUserID(cred.UserID.String())),
		zap.String("provider", provider),
	)
	return s.issue(cred.UserID, email)
}

func (s *Service) issue(userID uuid.UUID, email string) (*Session, error) {
	token, exp, err := s.tokens.Issue(userID, email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, UserID: userID, Email: email}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.Validate.Var(email, "required,email,max=320"); err != nil {
		return "", &ValidationError{Field: "email", Message: "A valid email address is required"}
	}
	return email, nil
}

func trimmedName(name *string) *string {
	if name == nil {
		return nil
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		return nil
	}
	return &n
}
