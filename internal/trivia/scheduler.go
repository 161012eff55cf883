package trivia

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// TickResult is what one scheduler tick did.
type TickResult int

const (
	// TickSkipped means the contest is paused or inactive.
	TickSkipped TickResult = iota
	// TickContinuing means a question was released and resolved or handed to staff.
	TickContinuing
	// TickExhausted means the bank ran dry and the contest ended.
	TickExhausted
	// TickFailed means the tick was abandoned without marking anything asked.
	TickFailed
)

func (r TickResult) String() string {
	switch r {
	case TickSkipped:
		return "skipped"
	case TickContinuing:
		return "continuing"
	case TickExhausted:
		return "exhausted"
	case TickFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// scheduler owns the timer of one server's contest.
type scheduler struct {
	serverID string
	cancel   context.CancelFunc
	// tickMu serializes scheduled ticks with ticks triggered by hand.
	tickMu sync.Mutex
}

func (s *Service) launch(state contest.State, firstDelay time.Duration, tickNow bool) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	sc := &scheduler{serverID: state.ServerID, cancel: cancel}

	s.mu.Lock()
	if old, ok := s.schedulers[state.ServerID]; ok {
		old.cancel()
	}
	s.schedulers[state.ServerID] = sc
	s.mu.Unlock()
	activeContests.Inc()

	interval := s.interval(state)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unregister(sc)
		s.run(ctx, state.ServerID, interval, firstDelay, tickNow)
	}()
}

func (s *Service) run(ctx context.Context, serverID string, interval, firstDelay time.Duration, tickNow bool) {
	if tickNow && s.Tick(ctx, serverID) == TickExhausted {
		return
	}

	timer := time.NewTimer(firstDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	if s.Tick(ctx, serverID) == TickExhausted {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Tick(ctx, serverID) == TickExhausted {
				return
			}
		}
	}
}

func (s *Service) unregister(sc *scheduler) {
	sc.cancel()
	s.mu.Lock()
	if cur, ok := s.schedulers[sc.serverID]; ok && cur == sc {
		delete(s.schedulers, sc.serverID)
	}
	s.mu.Unlock()
	activeContests.Dec()
}

func (s *Service) running(serverID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.schedulers[serverID]
	return ok
}

func (s *Service) lookup(serverID string) *scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedulers[serverID]
}

// Tick runs one round for the server. Errors are logged, never returned.
func (s *Service) Tick(ctx context.Context, serverID string) TickResult {
	if sc := s.lookup(serverID); sc != nil {
		sc.tickMu.Lock()
		defer sc.tickMu.Unlock()
	}
	res := s.tick(ctx, serverID)
	ticksTotal.WithLabelValues(res.String()).Inc()
	return res
}

func (s *Service) tick(ctx context.Context, serverID string) TickResult {
	log := s.logger.With().Str("server_id", serverID).Logger()

	state, err := s.store.GetContest(ctx, serverID)
	if err != nil {
		log.Error().Err(err).Msg("tick: load contest failed")
		return TickFailed
	}
	if !state.Active || state.Paused {
		log.Debug().Bool("paused", state.Paused).Bool("active", state.Active).Msg("tick skipped")
		return TickSkipped
	}

	q, err := s.questions.Next(ctx, state)
	if errors.Is(err, contest.ErrNotFound) {
		s.exhaust(ctx, state, log)
		return TickExhausted
	}
	if err != nil {
		log.Error().Err(err).Msg("tick: question bank read failed")
		return TickFailed
	}
	log = log.With().Str("question_id", q.ID).Logger()

	mention := s.mention(ctx, state, log)
	out := questionMessage(len(state.AskedQuestionIDs)+1, q, mention, s.budget(state))

	if q.ManualReview() {
		if _, err := s.platform.Send(ctx, state.PublicChannelID, out); err != nil {
			log.Error().Err(err).Msg("tick: publish question failed")
			return TickFailed
		}
		if err := s.desk.open(ctx, state, q); err != nil {
			log.Error().Err(err).Msg("tick: staff review prompt failed")
			resolutionsTotal.WithLabelValues("manual", "failed").Inc()
		}
	} else {
		// Subscribe before publishing so the quickest answers are not missed.
		sub := s.platform.Subscribe(state.PublicChannelID)
		if _, err := s.platform.Send(ctx, state.PublicChannelID, out); err != nil {
			sub.Close()
			log.Error().Err(err).Msg("tick: publish question failed")
			return TickFailed
		}
		s.resolveAuto(ctx, state, q, sub, log)
	}

	// The question is out; record it even if shutdown interrupted the resolver.
	ctx = context.WithoutCancel(ctx)
	if err := s.store.MarkAsked(ctx, serverID, q.ID, s.now()); err != nil {
		log.Error().Err(err).Msg("tick: mark asked failed")
		return TickFailed
	}
	state.AskedQuestionIDs = append(state.AskedQuestionIDs, q.ID)
	s.refreshPanel(ctx, state)
	return TickContinuing
}

// resolveAuto listens for the first matching answer within the budget.
func (s *Service) resolveAuto(ctx context.Context, state contest.State, q contest.Question, sub *chat.Subscription, log zerolog.Logger) {
	outcome := newCollector(sub, func(m chat.Message) bool {
		return matchAnswer(m.Content, q)
	}).Run(ctx, s.budget(state))
	resolutionsTotal.WithLabelValues("auto", outcome.State.String()).Inc()

	// Announcements run even if the scheduler is being cancelled.
	ctx = context.WithoutCancel(ctx)
	switch outcome.State {
	case CollectorResolved:
		winner := outcome.Winner.Author()
		if _, err := s.platform.Send(ctx, state.PublicChannelID, winnerMessage(winner, q)); err != nil {
			log.Warn().Err(err).Msg("announce winner failed")
		}
		s.award(ctx, state, winner, q, log)
	case CollectorTimedOut:
		if _, err := s.platform.Send(ctx, state.PublicChannelID, timeoutMessage(q)); err != nil {
			log.Warn().Err(err).Msg("announce timeout failed")
		}
	default:
		log.Warn().Str("outcome", outcome.State.String()).Msg("answer collection ended without a result")
	}
}

func (s *Service) award(ctx context.Context, state contest.State, winner contest.Participant, q contest.Question, log zerolog.Logger) {
	if err := s.board.AwardPoint(ctx, state.ServerID, winner, q.ID, s.points); err != nil {
		log.Error().Err(err).Str("participant_id", winner.ID).Msg("award point failed")
		return
	}
	pointsAwarded.Add(float64(s.points))
	// The contest may have moved on since the question was asked.
	if fresh, err := s.store.GetContest(ctx, state.ServerID); err == nil {
		state = fresh
	}
	if err := s.refreshInfo(ctx, state); err != nil {
		log.Warn().Err(err).Msg("leaderboard refresh failed")
	}
}

// exhaust ends the contest: the scheduler stops after this tick returns.
func (s *Service) exhaust(ctx context.Context, state contest.State, log zerolog.Logger) {
	log.Info().Int("questions_asked", len(state.AskedQuestionIDs)).Msg("question bank exhausted, contest finished")

	if err := s.store.SetActive(ctx, state.ServerID, false); err != nil {
		log.Error().Err(err).Msg("mark contest inactive failed")
	}
	state.Active = false

	text, err := s.board.RenderText(ctx, state.ServerID)
	if err != nil {
		log.Warn().Err(err).Msg("render final standings failed")
		text = "(standings unavailable)"
	}
	notice := completionMessage(text)
	if _, err := s.platform.Send(ctx, state.PublicChannelID, notice); err != nil {
		log.Warn().Err(err).Msg("public completion notice failed")
	}
	if state.StaffChannelID != state.PublicChannelID {
		if _, err := s.platform.Send(ctx, state.StaffChannelID, notice); err != nil {
			log.Warn().Err(err).Msg("staff completion notice failed")
		}
	}
	if !state.InfoMessage.IsZero() {
		if err := s.platform.Edit(ctx, state.InfoMessage, renderInfo(state, text)); err != nil {
			log.Warn().Err(err).Msg("final info update failed")
		}
	}
	s.refreshPanel(ctx, state)
	s.board.PublishContest(ctx, state, string(statusFinished))

	// Leave the registry now so a new contest can start before the goroutine exits.
	s.mu.Lock()
	if sc, ok := s.schedulers[state.ServerID]; ok {
		sc.cancel()
		delete(s.schedulers, state.ServerID)
	}
	s.mu.Unlock()
}

func (s *Service) mention(ctx context.Context, state contest.State, log zerolog.Logger) string {
	if state.NotifyRoleID == "" {
		return ""
	}
	mention, err := s.platform.Mention(ctx, state.ServerID, state.NotifyRoleID)
	if err != nil {
		log.Warn().Err(err).Msg("resolve notify mention failed")
		return ""
	}
	return mention
}
