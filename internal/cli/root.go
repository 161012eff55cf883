package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/trivia-bot/internal/config"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/store/postgres"
)

// Execute runs triviactl until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(defaultEnv()).ExecuteContext(ctx)
}

// env is what commands need from the outside world; tests swap the store.
type env struct {
	openStore func(ctx context.Context) (contest.Store, func(), error)
	logger    zerolog.Logger
}

func defaultEnv() *env {
	return &env{
		openStore: openPostgres,
		logger:    zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

func newRootCmd(e *env) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:          "triviactl",
		Short:        "Manage trivia question banks, standings and staff tokens",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "configs/.env", "dotenv file to load before reading the environment")
	cmd.AddCommand(newQuestionsCmd(e))
	cmd.AddCommand(newLeaderboardCmd(e))
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newMigrateCmd(e))
	return cmd
}

func openPostgres(ctx context.Context) (contest.Store, func(), error) {
	var pg config.Postgres
	if err := config.LoadSection(&pg); err != nil {
		return nil, nil, err
	}
	if !pg.Enabled() {
		return nil, nil, fmt.Errorf("PG_HOST is required")
	}
	pool, err := pgxpool.New(ctx, pg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return postgres.NewStore(pool), pool.Close, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
