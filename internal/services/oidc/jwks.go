package oidc

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// jwksEntry is one cached key set
type jwksEntry struct {
	keys    jwk.Set
	expires time.Time
}

// JWKSManager fetches provider key sets and caches them per URL
type JWKSManager struct {
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]jwksEntry
}

// NewJWKSManager creates a JWKS manager caching key sets for one hour
func NewJWKSManager(client *http.Client) *JWKSManager {
	if client == nil {
		client = newHTTPClient()
	}
	return &JWKSManager{
		client: client,
		ttl:    time.Hour,
		now:    time.Now,
		cache:  make(map[string]jwksEntry),
	}
}

// GetJWKS returns the key set at jwksURL, fetching when the cached copy is stale
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, ok := m.cache[jwksURL]
	m.mu.RUnlock()
	if ok && m.now().Before(entry.expires) {
		return entry.keys, nil
	}

	keys, err := jwk.Fetch(ctx, jwksURL, jwk.WithHTTPClient(m.client))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.cache[jwksURL] = jwksEntry{keys: keys, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()

	return keys, nil
}

// Invalidate drops the cached key set for jwksURL
func (m *JWKSManager) Invalidate(jwksURL string) {
	m.mu.Lock()
	delete(m.cache, jwksURL)
	m.mu.Unlock()
}
