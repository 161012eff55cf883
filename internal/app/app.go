package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/trivia-bot/internal/auth/jwt"
	"github.com/gokatarajesh/trivia-bot/internal/chat/telegram"
	"github.com/gokatarajesh/trivia-bot/internal/config"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/export"
	"github.com/gokatarajesh/trivia-bot/internal/leaderboard"
	"github.com/gokatarajesh/trivia-bot/internal/logging"
	"github.com/gokatarajesh/trivia-bot/internal/question"
	"github.com/gokatarajesh/trivia-bot/internal/question/external"
	"github.com/gokatarajesh/trivia-bot/internal/server"
	"github.com/gokatarajesh/trivia-bot/internal/store/memory"
	"github.com/gokatarajesh/trivia-bot/internal/store/postgres"
	"github.com/gokatarajesh/trivia-bot/internal/trivia"
	ws "github.com/gokatarajesh/trivia-bot/pkg/http/ws"
)

// Application aggregates shared infrastructure and the running components.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	trivia         *trivia.Service
	telegram       *telegram.Adapter
	lbBroadcaster  *leaderboard.Broadcaster
	snapshotWorker *leaderboard.SnapshotWorker
}

// New bootstraps logger, stores, Redis, the Telegram adapter, the contest engine and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	app := &Application{cfg: cfg, logger: logger}

	store, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		app.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	questionSvc := question.NewService(store, logger, question.ServiceOptions{
		OpenTDB: external.NewOpenTDBClient(cfg.OpenTDB.BaseURL, &http.Client{Timeout: cfg.OpenTDB.HTTPTimeout}),
		Tokens:  question.NewTokenCache(app.redis, 0),
	})
	leaderboardSvc := leaderboard.NewService(store, app.redis, logger, leaderboard.ServiceOptions{
		PubSubChannel: cfg.Trivia.LeaderboardChannel,
		RenderLimit:   cfg.Trivia.LeaderboardLimit,
	})

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	bot.Debug = cfg.Telegram.Debug
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")

	app.telegram = telegram.New(bot, telegram.NewRoster(app.redis), logger, telegram.Options{
		AdminRole:    cfg.Trivia.AdminRole,
		StaffRole:    cfg.Trivia.StaffRole,
		StaffUserIDs: cfg.Telegram.StaffUserIDs,
		PollTimeout:  cfg.Telegram.PollTimeout,
	})

	app.trivia = trivia.NewService(store, questionSvc, leaderboardSvc, app.telegram, trivia.NewRedisLocker(app.redis), logger, trivia.ServiceOptions{
		AnswerWindow:          cfg.Trivia.AnswerWindow,
		Points:                cfg.Trivia.PointsPerWin,
		StaffRoles:            []string{cfg.Trivia.AdminRole, cfg.Trivia.StaffRole},
		NotifyRoleID:          cfg.Trivia.NotifyRole,
		DefaultStaffChannelID: cfg.Trivia.StaffChannelID,
	})

	hub := ws.NewHub(logger)
	app.lbBroadcaster = leaderboard.NewBroadcaster(app.redis, hub, cfg.Trivia.LeaderboardChannel, logger)

	if cfg.Export.Enabled() {
		// The client keeps the context for token refreshes.
		exporter, err := export.NewSheetsExporter(context.WithoutCancel(ctx), cfg.Export.CredentialsFile, cfg.Export.SpreadsheetID, logger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("sheets export: %w", err)
		}
		app.snapshotWorker = leaderboard.NewSnapshotWorker(leaderboardSvc, store, exporter, cfg.Export.Interval, logger)
	} else {
		logger.Info().Msg("standings export disabled (SHEETS_SPREADSHEET_ID not set)")
	}

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		TTL:    cfg.Security.TokenTTL,
		Issuer: cfg.Security.JWTIssuer,
	})

	app.http = server.NewHTTPServer(cfg, logger, server.Deps{
		Pool:        app.pool,
		Redis:       app.redis,
		Tokens:      tokens,
		Contests:    trivia.NewHTTPHandler(app.trivia, logger),
		Leaderboard: leaderboard.NewHTTPHandler(leaderboardSvc, logger),
		Stream:      leaderboard.NewStreamHandler(leaderboardSvc, hub, nil, logger),
	})

	return app, nil
}

func (a *Application) openStore(ctx context.Context) (contest.Store, error) {
	if !a.cfg.Postgres.Enabled() {
		a.logger.Warn().Msg("PG_HOST not set; using the in-memory store, contests will not survive a restart")
		return memory.NewStore(), nil
	}

	poolCfg, err := pgxpool.ParseConfig(a.cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = a.cfg.Postgres.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	a.pool = pool
	return postgres.NewStore(pool), nil
}

// Run serves until a termination signal or a component failure, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	recovered, err := a.trivia.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover contests: %w", err)
	}
	a.logger.Info().Int("contests", recovered).Msg("active contests recovered")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.telegram.Run(gctx, a.trivia)
	})
	g.Go(func() error {
		return ignoreCanceled(a.lbBroadcaster.Run(gctx))
	})
	if a.snapshotWorker != nil {
		g.Go(func() error {
			return ignoreCanceled(a.snapshotWorker.Run(gctx))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("http shutdown error")
		}
		if err := a.trivia.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("contest schedulers did not stop in time")
		}
		return nil
	})

	err = g.Wait()
	a.logger.Info().Msg("shutdown complete")
	return err
}

func (a *Application) close() {
	if a.telegram != nil {
		a.telegram.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
