package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			type Config struct {
				Postgres config.Postgres
			}
			cfg, err := config.New[Config]()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := cmd.Context()
			pool, err := db.NewPgxPool(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("create pgx pool: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
