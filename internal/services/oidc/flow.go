package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrUnknownProvider is returned when no config exists for the requested provider
var ErrUnknownProvider = errors.New("oidc provider not configured")

// Flow runs the authorization code flow for configured providers
type Flow struct {
	configs  database.OIDCConfigRepositoryInterface
	states   StateStore
	verifier *Verifier
	client   *http.Client
	logger   *zap.Logger
}

// NewFlow creates a flow. client is used for discovery and token exchange.
func NewFlow(configs database.OIDCConfigRepositoryInterface, states StateStore, client *http.Client, log *zap.Logger) *Flow {
	if client == nil {
		client = newHTTPClient()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		configs:  configs,
		states:   states,
		verifier: NewVerifier(NewJWKSManager(client)),
		client:   client,
		logger:   log,
	}
}

// LoginURL starts a login with provider and returns where to send the browser
func (f *Flow) LoginURL(ctx context.Context, provider string) (string, error) {
	cfg, err := f.config(ctx, provider)
	if err != nil {
		return "", err
	}
	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := f.states.Save(ctx, state, provider, StateTTL); err != nil {
		return "", err
	}
	endpoints := Discover(ctx, f.client, cfg)
	return NewClient(cfg, endpoints).AuthCodeURL(state), nil
}

// Callback validates state, exchanges code and returns the verified identity
func (f *Flow) Callback(ctx context.Context, provider, code, state string) (*IDClaims, error) {
	if code == "" || state == "" {
		return nil, ErrInvalidState
	}
	issuedFor, err := f.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if issuedFor != provider {
		return nil, ErrInvalidState
	}

	cfg, err := f.config(ctx, provider)
	if err != nil {
		return nil, err
	}
	endpoints := Discover(ctx, f.client, cfg)

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, f.client)
	rawIDToken, err := NewClient(cfg, endpoints).ExchangeCode(exchangeCtx, code)
	if err != nil {
		f.logger.Warn("oidc_code_exchange_failed", zap.String("provider", provider), zap.Error(err))
		return nil, err
	}

	claims, err := f.verifier.Verify(ctx, rawIDToken, endpoints, cfg.ClientID)
	if err != nil {
		f.logger.Warn("oidc_id_token_rejected", zap.String("provider", provider), zap.Error(err))
		return nil, err
	}
	return claims, nil
}

func (f *Flow) config(ctx context.Context, provider string) (*models.OIDCConfig, error) {
	cfg, err := f.configs.GetByProvider(ctx, provider)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return cfg, nil
}
