package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benvon/todo-assistant/internal/config"
	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/services/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewUserCmd creates the user command for provisioning accounts.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an email/password account",
		Long:  "Create an email/password account. The password is prompted for, or read from stdin when it is not a terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}

			password, err := readPassword(os.Stdin, os.Stderr)
			if err != nil {
				return err
			}

			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				log, err := logger.NewDevelopmentLogger(false)
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				defer func() { _ = logger.Sync(log) }()

				tokens, err := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)
				if err != nil {
					return err
				}
				svc, err := auth.NewService(database.NewCredentialRepository(db), tokens, cfg.BcryptCost, log)
				if err != nil {
					return err
				}

				var namePtr *string
				if name != "" {
					namePtr = &name
				}
				session, err := svc.Register(ctx, email, password, namePtr)
				var verr *auth.ValidationError
				switch {
				case errors.As(err, &verr):
					return fmt.Errorf("%s: %s", verr.Field, verr.Message)
				case errors.Is(err, auth.ErrEmailTaken):
					return fmt.Errorf("an account with email %s already exists", email)
				case err != nil:
					return fmt.Errorf("failed to create user: %w", err)
				}

				fmt.Printf("Created user %s (%s)\n", session.UserID, session.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (optional)")

	return cmd
}

// readPassword prompts twice on a terminal, or reads a single line otherwise
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readPasswordLine(in)
	}

	_, _ = fmt.Fprint(prompt, "Password: ")
	first, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	_, _ = fmt.Fprint(prompt, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return password, nil
}
