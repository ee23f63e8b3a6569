package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const emailClaim = "email"

var (
	// ErrTokenExpired reports a well-formed session token past its expiry
	ErrTokenExpired = fmt.Errorf("%w: session token", database.ErrCredentialExpired)
	// ErrInvalidToken covers every other verification failure
	ErrInvalidToken = errors.New("invalid session token")
)

// TokenManager issues and verifies HS256 session tokens
type TokenManager struct {
	key    jwk.Key
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager signing with secret
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	key, err := jwk.FromRaw([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to create signing key: %w", err)
	}
	return &TokenManager{key: key, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID and returns it with its expiry
func (m *TokenManager) Issue(userID uuid.UUID, email string) (string, time.Time, error) {
	now := m.now().UTC().Truncate(time.Second)
	exp := now.Add(m.ttl)

	tok, err := jwt.NewBuilder().
		Subject(userID.String()).
		Issuer(m.issuer).
		IssuedAt(now).
		Expiration(exp).
		Claim(emailClaim, email).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, m.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), exp, nil
}

// Verify checks signature, issuer and expiry and returns the claims
func (m *TokenManager) Verify(token string) (*models.SessionClaims, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, m.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err := uuid.Parse(tok.Subject()); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	claims := &models.SessionClaims{
		Sub: tok.Subject(),
		Exp: tok.Expiration().Unix(),
		Iat: tok.IssuedAt().Unix(),
		Iss: tok.Issuer(),
	}
	if v, ok := tok.Get(emailClaim); ok {
		claims.Email, _ = v.(string)
	}
	return claims, nil
}
