package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
	ws "github.com/gokatarajesh/trivia-bot/pkg/http/ws"
)

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN          int
	PubSubChannel string
	// RenderLimit caps the lines in the chat rendering.
	RenderLimit int
}

// Service keeps per-server standings and emits updates over Redis Pub/Sub.
type Service struct {
	store         contest.LeaderboardStore
	redis         *redis.Client
	logger        zerolog.Logger
	topN          int
	pubsubChannel string
	renderLimit   int
}

// event is the Pub/Sub envelope consumed by Broadcaster.
type event struct {
	ServerID string     `json:"server_id"`
	Message  ws.Message `json:"message"`
}

// NewService constructs a leaderboard service instance. redis may be nil, in
// which case no live updates are published.
func NewService(store contest.LeaderboardStore, redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	renderLimit := opts.RenderLimit
	if renderLimit <= 0 {
		renderLimit = 10
	}

	return &Service{
		store:         store,
		redis:         redis,
		logger:        logger.With().Str("component", "leaderboard").Logger(),
		topN:          topN,
		pubsubChannel: channel,
		renderLimit:   renderLimit,
	}
}

// AwardPoint records a win and publishes the new standings.
func (s *Service) AwardPoint(ctx context.Context, serverID string, p contest.Participant, questionID string, points int) error {
	if points <= 0 {
		points = contest.DefaultPoints
	}
	if err := s.store.AwardPoint(ctx, serverID, p, questionID, points); err != nil {
		return fmt.Errorf("award point: %w", err)
	}
	s.logger.Info().
		Str("server_id", serverID).
		Str("question_id", questionID).
		Str("participant_id", p.ID).
		Int("points", points).
		Msg("point awarded")

	go s.publishUpdate(context.WithoutCancel(ctx), serverID, questionID)
	return nil
}

// Standings returns every entry ordered by score, ties broken by first win.
func (s *Service) Standings(ctx context.Context, serverID string) ([]contest.LeaderboardEntry, error) {
	entries, err := s.store.ListLeaderboard(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	Sort(entries)
	return entries, nil
}

// Top returns at most limit entries (capped at TopN).
func (s *Service) Top(ctx context.Context, serverID string, limit int) ([]contest.LeaderboardEntry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}
	entries, err := s.Standings(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Clear wipes the standings, used when a new contest starts.
func (s *Service) Clear(ctx context.Context, serverID string) error {
	if err := s.store.ClearLeaderboard(ctx, serverID); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	go s.publishUpdate(context.WithoutCancel(ctx), serverID, "")
	return nil
}

// RenderText fetches the standings and renders them for chat.
func (s *Service) RenderText(ctx context.Context, serverID string) (string, error) {
	entries, err := s.Standings(ctx, serverID)
	if err != nil {
		return "", err
	}
	return Render(entries, s.renderLimit), nil
}

// PublishContest pushes a contest status change to live subscribers.
func (s *Service) PublishContest(ctx context.Context, state contest.State, status string) {
	s.publish(ctx, state.ServerID, ws.TypeContestUpdate, ws.ContestUpdatePayload{
		ServerID:        state.ServerID,
		Status:          status,
		IntervalMinutes: state.IntervalMinutes,
		QuestionsAsked:  len(state.AskedQuestionIDs),
	})
}

func (s *Service) publishUpdate(ctx context.Context, serverID, questionID string) {
	if s.redis == nil {
		return
	}
	entries, err := s.Top(ctx, serverID, 10)
	if err != nil {
		s.logger.Warn().Err(err).Str("server_id", serverID).Msg("failed to collect leaderboard update")
		return
	}
	s.publish(ctx, serverID, ws.TypeLeaderboardUpdate, ws.LeaderboardUpdatePayload{
		ServerID:   serverID,
		QuestionID: questionID,
		Top:        toWSEntries(entries),
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Service) publish(ctx context.Context, serverID, msgType string, payload any) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	data, err := json.Marshal(event{ServerID: serverID, Message: ws.Message{Type: msgType, Payload: raw}})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard event")
		return
	}
	if err := s.redis.Publish(ctx, s.pubsubChannel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Str("server_id", serverID).Msg("failed to publish leaderboard update")
	}
}

// Sort orders entries by score descending; equal scores keep first-win order.
func Sort(entries []contest.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Rank < entries[j].Rank
	})
}

// Render formats sorted entries as numbered chat lines.
func Render(entries []contest.LeaderboardEntry, limit int) string {
	if len(entries) == 0 {
		return "No points awarded yet."
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := e.DisplayName
		if name == "" {
			name = e.ParticipantID
		}
		unit := "points"
		if e.Score == 1 {
			unit = "point"
		}
		fmt.Fprintf(&b, "%d. %s: %d %s", i+1, name, e.Score, unit)
	}
	return b.String()
}
