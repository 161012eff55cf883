package trivia

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// Review tokens travel in Telegram callback data, which is capped at 64 bytes.
const reviewTokenLength = 12

// pendingReview is a manual question waiting for a staff pick. state is the
// contest as it was when the picker opened; its StartedAt identifies the contest.
type pendingReview struct {
	token    string
	state    contest.State
	question contest.Question
	prompt   contest.MessageRef
	openedAt time.Time
}

// reviewDesk tracks open staff pickers. Pending reviews live in memory only
// and do not survive a restart.
type reviewDesk struct {
	svc     *Service
	mu      sync.Mutex
	pending map[string]*pendingReview
}

func newReviewDesk(svc *Service) *reviewDesk {
	return &reviewDesk{svc: svc, pending: make(map[string]*pendingReview)}
}

// open posts the picker to the staff channel and returns immediately.
func (d *reviewDesk) open(ctx context.Context, state contest.State, q contest.Question) error {
	token, err := gonanoid.New(reviewTokenLength)
	if err != nil {
		return fmt.Errorf("generate review token: %w", err)
	}
	ref, err := d.svc.platform.SendPicker(ctx, chat.PickerRequest{
		ServerID:        state.ServerID,
		ChannelID:       state.StaffChannelID,
		SourceChannelID: state.PublicChannelID,
		Prompt:          pickerPrompt(q),
		CustomID:        PickPrefix + token,
	})
	if err != nil {
		return fmt.Errorf("send staff picker: %w", err)
	}

	d.mu.Lock()
	d.pending[token] = &pendingReview{token: token, state: state, question: q, prompt: ref, openedAt: d.svc.now()}
	d.mu.Unlock()
	pendingReviews.Inc()
	return nil
}

// take removes and returns the review; only the first caller gets it.
func (d *reviewDesk) take(token string) (*pendingReview, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.pending[token]
	if ok {
		delete(d.pending, token)
		pendingReviews.Dec()
	}
	return r, ok
}

// drop removes every open review of the server and returns them.
func (d *reviewDesk) drop(serverID string) []*pendingReview {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*pendingReview
	for token, r := range d.pending {
		if r.state.ServerID != serverID {
			continue
		}
		delete(d.pending, token)
		pendingReviews.Dec()
		out = append(out, r)
	}
	return out
}

// Pending returns the number of open reviews.
func (d *reviewDesk) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// pick handles a picker selection.
func (d *reviewDesk) pick(ctx context.Context, in chat.Interaction) {
	s := d.svc
	token := strings.TrimPrefix(in.CustomID, PickPrefix)
	log := s.logger.With().Str("server_id", in.ServerID).Str("actor_id", in.Actor.ID).Str("review_token", token).Logger()

	if err := s.authorize(ctx, in.ServerID, in.Actor.ID); err != nil {
		if !errors.Is(err, contest.ErrUnauthorized) {
			log.Error().Err(err).Msg("role check failed")
		}
		s.respond(ctx, in, contest.UserMessage(err), true)
		return
	}
	if len(in.Selected) == 0 {
		s.respond(ctx, in, "Select a participant first.", true)
		return
	}

	r, ok := d.take(token)
	if !ok {
		s.respond(ctx, in, "This question was already resolved.", true)
		return
	}
	winner := in.Selected[0]
	log = log.With().Str("question_id", r.question.ID).Logger()

	if err := s.platform.Delete(ctx, r.prompt); err != nil {
		log.Warn().Err(err).Msg("delete staff prompt failed")
	}

	// Points only count toward the contest that asked the question.
	current, err := s.store.GetContest(ctx, r.state.ServerID)
	if err != nil && !errors.Is(err, contest.ErrNotFound) {
		log.Error().Err(err).Msg("reload contest failed")
		s.respond(ctx, in, contest.UserMessage(err), true)
		return
	}
	if err != nil || !current.StartedAt.Equal(r.state.StartedAt) {
		log.Info().Msg("pick for an earlier contest ignored")
		s.respond(ctx, in, "This question belongs to an earlier contest.", true)
		return
	}

	if _, err := s.platform.Send(ctx, current.PublicChannelID, winnerMessage(winner, r.question)); err != nil {
		log.Warn().Err(err).Msg("announce winner failed")
	}
	s.award(ctx, current, winner, r.question, log)
	resolutionsTotal.WithLabelValues("manual", CollectorResolved.String()).Inc()

	log.Info().
		Str("participant_id", winner.ID).
		Dur("review_time", s.now().Sub(r.openedAt)).
		Msg("manual question resolved")
	s.respond(ctx, in, fmt.Sprintf("Point awarded to %s.", displayName(winner)), true)
}
