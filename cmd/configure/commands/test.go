package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/todo-assistant/internal/config"
	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/services/oidc"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test OIDC configuration",
		Long:  "Test OIDC provider configuration by resolving its endpoints and fetching its signing keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				return fmt.Errorf("--provider is required")
			}

			return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
				oidcConfig, err := database.NewOIDCConfigRepository(db).GetByProvider(ctx, provider)
				if err != nil {
					return fmt.Errorf("failed to get OIDC config: %w", err)
				}

				fmt.Printf("Testing OIDC configuration for provider: %s\n", provider)
				fmt.Printf("Issuer: %s\n", oidcConfig.Issuer)

				ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				client := &http.Client{Timeout: 10 * time.Second}

				endpoints := oidc.Discover(ctx, client, oidcConfig)
				fmt.Printf("\nAuthorization endpoint: %s\n", endpoints.AuthorizationEndpoint)
				fmt.Printf("Token endpoint: %s\n", endpoints.TokenEndpoint)
				fmt.Printf("JWKS endpoint: %s\n", endpoints.JWKSURI)

				keys, err := oidc.NewJWKSManager(client).GetJWKS(ctx, endpoints.JWKSURI)
				if err != nil {
					return fmt.Errorf("failed to fetch JWKS: %w", err)
				}
				if keys.Len() == 0 {
					return fmt.Errorf("JWKS endpoint returned no keys")
				}
				fmt.Printf("✓ JWKS endpoint returned %d key(s)\n", keys.Len())

				fmt.Println("\n✓ OIDC configuration test passed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider name to test (required)")

	return cmd
}
