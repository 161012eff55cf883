package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/trivia-bot/internal/config"
	"github.com/gokatarajesh/trivia-bot/internal/store/postgres"
)

func main() {
	command := flag.String("command", "up", "Migration command: up, down, or status")
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	var pg config.Postgres
	if err := config.LoadSection(&pg); err != nil {
		log.Fatal().Err(err).Msg("failed to load postgres config")
	}
	if !pg.Enabled() {
		log.Fatal().Msg("PG_HOST environment variable is required")
	}

	log.Info().
		Str("host", pg.Host).
		Int("port", pg.Port).
		Str("database", pg.Database).
		Str("command", *command).
		Msg("running migrations")

	if err := postgres.Migrate(context.Background(), pg.DSN(), *command); err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
	log.Info().Str("command", *command).Msg("migrations finished")
}
