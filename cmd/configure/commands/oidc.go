package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/todo-assistant/internal/config"
	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/spf13/cobra"
)

// NewOIDCCmd creates the OIDC configuration command with set and delete subcommands.
func NewOIDCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oidc",
		Short: "Manage OIDC providers",
		Long:  "Create, update or remove external OIDC providers users may sign in with. Provider name can be any identifier (e.g., 'cognito', 'okta', 'auth0')",
	}
	cmd.AddCommand(newOIDCSetCmd())
	cmd.AddCommand(newOIDCDeleteCmd())
	return cmd
}

func newOIDCSetCmd() *cobra.Command {
	var issuer, clientID, clientSecret, redirectURI, jwksURL string

	cmd := &cobra.Command{
		Use:   "set <provider-name>",
		Short: "Create or update an OIDC provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.TrimSpace(args[0])
			if provider == "" {
				return fmt.Errorf("provider name cannot be empty")
			}
			if issuer == "" || clientID == "" || redirectURI == "" {
				return fmt.Errorf("required flags: --issuer, --client-id, --redirect-uri (--client-secret is optional for public clients)")
			}

			oidcConfig := &models.OIDCConfig{
				Provider:    provider,
				Issuer:      strings.TrimSuffix(issuer, "/"),
				ClientID:    clientID,
				RedirectURI: redirectURI,
			}
			if clientSecret != "" {
				oidcConfig.ClientSecret = &clientSecret
			}
			if jwksURL != "" {
				oidcConfig.JWKSUrl = &jwksURL
			}

			return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
				repo := database.NewOIDCConfigRepository(db)
				_, err := repo.GetByProvider(ctx, provider)
				existed := err == nil
				if err != nil && !errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("failed to look up OIDC config: %w", err)
				}

				if err := repo.Upsert(ctx, oidcConfig); err != nil {
					return fmt.Errorf("failed to save OIDC config: %w", err)
				}
				if existed {
					fmt.Printf("Updated OIDC configuration for provider: %s\n", provider)
				} else {
					fmt.Printf("Created OIDC configuration for provider: %s\n", provider)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (optional for public clients)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS URL (optional, discovered from the issuer when omitted)")

	return cmd
}

func newOIDCDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <provider-name>",
		Short: "Remove an OIDC provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
				err := database.NewOIDCConfigRepository(db).Delete(ctx, provider)
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("no OIDC provider named %q", provider)
				}
				if err != nil {
					return fmt.Errorf("failed to delete OIDC config: %w", err)
				}
				fmt.Printf("Deleted OIDC configuration for provider: %s\n", provider)
				return nil
			})
		},
	}
}
