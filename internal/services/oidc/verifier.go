package oidc

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// IDClaims are the identity claims read from a verified id_token
type IDClaims struct {
	Subject string
	Email   string
	Name    *string
}

// Verifier verifies provider id_tokens
type Verifier struct {
	jwks *JWKSManager
}

// NewVerifier creates a new id_token verifier
func NewVerifier(jwks *JWKSManager) *Verifier {
	return &Verifier{jwks: jwks}
}

// Verify checks the id_token signature against the provider key set along
// with issuer, audience and expiry, and extracts the identity claims.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string, endpoints Endpoints, clientID string) (*IDClaims, error) {
	keys, err := v.jwks.GetJWKS(ctx, endpoints.JWKSURI)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse([]byte(rawIDToken),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(endpoints.Issuer),
		jwt.WithAudience(clientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}

	claims := &IDClaims{Subject: token.Subject()}
	if claims.Subject == "" {
		return nil, fmt.Errorf("id_token missing subject")
	}
	if email, ok := token.Get("email"); ok {
		claims.Email, _ = email.(string)
	}
	if name, ok := token.Get("name"); ok {
		if s, ok := name.(string); ok && s != "" {
			claims.Name = &s
		}
	}
	return claims, nil
}
