package commands

import (
	"fmt"
	"time"

	"github.com/benvon/todo-assistant/internal/config"
	"github.com/benvon/todo-assistant/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewDLQCmd creates the dlq command for inspecting dead summary jobs.
func NewDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Manage the summary job dead-letter queue",
	}
	cmd.AddCommand(newDLQPurgeCmd())
	return cmd
}

func newDLQPurgeCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove dead summary jobs older than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.AsyncReportsEnabled() {
				return fmt.Errorf("RABBITMQ_URL is not configured")
			}

			q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zap.NewNop())
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() { _ = q.Close() }()

			n, err := queue.NewGarbageCollector(q, 0, olderThan, nil).Collect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Purged %d dead job(s) older than %s\n", n, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", queue.DefaultDLQRetention, "Minimum age of dead jobs to remove")
	return cmd
}
