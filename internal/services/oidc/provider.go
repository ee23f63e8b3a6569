// Package oidc signs users in through an external OpenID Connect provider.
package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/todo-assistant/internal/models"
)

// Endpoints are the provider URLs used by the authorization code flow
type Endpoints struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	Issuer                string `json:"issuer"`
}

// Discover reads the provider's discovery document. Missing entries fall back
// to the conventional paths under the issuer; a configured JWKS URL wins.
func Discover(ctx context.Context, client *http.Client, cfg *models.OIDCConfig) Endpoints {
	var doc Endpoints

	discoveryURL := joinURL(cfg.Issuer, ".well-known/openid-configuration")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err == nil {
		resp, err := client.Do(req)
		if err == nil {
			if resp.StatusCode == http.StatusOK {
				_ = json.NewDecoder(resp.Body).Decode(&doc)
			}
			_ = resp.Body.Close()
		}
	}

	if doc.Issuer == "" {
		doc.Issuer = strings.TrimSuffix(cfg.Issuer, "/")
	}
	if doc.AuthorizationEndpoint == "" {
		doc.AuthorizationEndpoint = joinURL(cfg.Issuer, "oauth2/authorize")
	}
	if doc.TokenEndpoint == "" {
		doc.TokenEndpoint = joinURL(cfg.Issuer, "oauth2/token")
	}
	if cfg.JWKSUrl != nil && *cfg.JWKSUrl != "" {
		doc.JWKSURI = *cfg.JWKSUrl
	} else if doc.JWKSURI == "" {
		doc.JWKSURI = joinURL(cfg.Issuer, ".well-known/jwks.json")
	}
	return doc
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + path
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
