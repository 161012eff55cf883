package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/trivia-bot/internal/config"
	"github.com/gokatarajesh/trivia-bot/internal/store/postgres"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			var pg config.Postgres
			if err := config.LoadSection(&pg); err != nil {
				return err
			}
			if !pg.Enabled() {
				return fmt.Errorf("PG_HOST is required")
			}
			if err := postgres.Migrate(cmd.Context(), pg.DSN(), command); err != nil {
				return err
			}
			e.logger.Info().Str("command", command).Msg("migrations finished")
			return nil
		},
	}
}
