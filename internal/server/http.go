package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-bot/internal/auth"
	"github.com/gokatarajesh/trivia-bot/internal/auth/jwt"
	"github.com/gokatarajesh/trivia-bot/internal/config"
	"github.com/gokatarajesh/trivia-bot/internal/leaderboard"
	"github.com/gokatarajesh/trivia-bot/internal/logging"
	"github.com/gokatarajesh/trivia-bot/internal/trivia"
	apperrors "github.com/gokatarajesh/trivia-bot/pkg/http/errors"
)

// Deps are the handlers and clients the HTTP surface needs. Pool may be nil
// when running on the in-memory store.
type Deps struct {
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Tokens      *jwt.Manager
	Contests    *trivia.HTTPHandler
	Leaderboard *leaderboard.HTTPHandler
	Stream      *leaderboard.StreamHandler
}

// NewHTTPServer wires health, metrics, the public leaderboard routes and the
// staff contest API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Deps) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), deps.Pool, deps.Redis); err != nil {
			log := logging.FromContext(r.Context())
			log.Error().Err(err).Msg("dependency ping failed")
			apperrors.RespondBadGateway(w, "dependency check failed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if deps.Leaderboard != nil {
		mux.HandleFunc("GET /v1/leaderboards/{server}", deps.Leaderboard.HandleGet)
	}
	if deps.Stream != nil {
		mux.HandleFunc("GET /ws/leaderboards", deps.Stream.HandleWebSocket)
	}

	if deps.Contests != nil && deps.Tokens != nil {
		authn := auth.Middleware(deps.Tokens, logger)
		staffOnly := auth.RequireRole(auth.RoleAdmin, auth.RoleStaff)
		deps.Contests.Register(mux, func(next http.Handler) http.Handler {
			return authn(staffOnly(next))
		})
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: logging.Middleware(logger)(mux),
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
	}
	if redis == nil {
		return errors.New("redis not configured")
	}
	return redis.Ping(ctx).Err()
}
