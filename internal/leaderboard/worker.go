package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// Sink receives standings snapshots (Google Sheets in production).
type Sink interface {
	Export(ctx context.Context, serverID string, entries []contest.LeaderboardEntry) error
}

type activeLister interface {
	ListActive(ctx context.Context) ([]contest.State, error)
}

// SnapshotWorker periodically pushes the standings of active contests to a Sink.
type SnapshotWorker struct {
	svc      *Service
	contests activeLister
	sink     Sink
	logger   zerolog.Logger
	interval time.Duration
	// last content hash per server, so unchanged boards are not re-exported
	lastHash map[string]string
}

func NewSnapshotWorker(svc *Service, contests activeLister, sink Sink, interval time.Duration, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SnapshotWorker{
		svc:      svc,
		contests: contests,
		sink:     sink,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		lastHash: make(map[string]string),
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.sink == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context) {
	states, err := w.contests.ListActive(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("list active contests failed")
		return
	}
	for _, state := range states {
		if err := w.snapshot(ctx, state.ServerID); err != nil {
			w.logger.Warn().Err(err).Str("server_id", state.ServerID).Msg("snapshot failed")
		}
	}
}

func (w *SnapshotWorker) snapshot(ctx context.Context, serverID string) error {
	entries, err := w.svc.Standings(ctx, serverID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if w.lastHash[serverID] == hash {
		return nil
	}

	if err := w.sink.Export(ctx, serverID, entries); err != nil {
		return err
	}
	w.lastHash[serverID] = hash

	w.logger.Info().
		Str("server_id", serverID).
		Int("entries", len(entries)).
		Msg("leaderboard snapshot exported")
	return nil
}
