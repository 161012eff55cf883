package trivia

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/leaderboard"
	"github.com/gokatarajesh/trivia-bot/internal/question"
)

const startLockTTL = 30 * time.Second

// ServiceOptions tunes the contest engine.
type ServiceOptions struct {
	// AnswerWindow is the fraction of the interval the automatic resolver listens for.
	AnswerWindow float64
	// Points awarded per won question.
	Points int
	// StaffRoles may control contests and adjudicate manual questions.
	StaffRoles []string
	// NotifyRoleID is used when a start request does not name one.
	NotifyRoleID string
	// DefaultStaffChannelID is used when a start request does not name one.
	DefaultStaffChannelID string
	// IntervalUnit is the length of one interval minute; tests shrink it.
	IntervalUnit time.Duration
	Clock        func() time.Time
}

// Service is the trivia contest engine: one scheduler per active server plus
// the staff-facing operations.
type Service struct {
	store     contest.ContestStore
	questions *question.Service
	board     *leaderboard.Service
	platform  chat.Platform
	locker    Locker
	logger    zerolog.Logger

	answerWindow   float64
	points         int
	staffRoles     []string
	notifyRoleID   string
	defaultStaffCh string
	unit           time.Duration
	now            func() time.Time

	desk *reviewDesk

	mu         sync.Mutex
	schedulers map[string]*scheduler
	baseCtx    context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// StartRequest describes a new contest.
type StartRequest struct {
	ServerID        string
	PublicChannelID string
	StaffChannelID  string
	IntervalMinutes int
	NotifyRoleID    string
	StartNow        bool
	ActorID         string
}

// NewService wires the engine. locker may be nil for single-replica deployments.
func NewService(
	store contest.ContestStore,
	questions *question.Service,
	board *leaderboard.Service,
	platform chat.Platform,
	locker Locker,
	logger zerolog.Logger,
	opts ServiceOptions,
) *Service {
	window := opts.AnswerWindow
	if window <= 0 || window > 1 {
		window = 0.75
	}
	points := opts.Points
	if points <= 0 {
		points = contest.DefaultPoints
	}
	roles := opts.StaffRoles
	if len(roles) == 0 {
		roles = []string{"admin", "staff"}
	}
	unit := opts.IntervalUnit
	if unit <= 0 {
		unit = time.Minute
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:          store,
		questions:      questions,
		board:          board,
		platform:       platform,
		locker:         locker,
		logger:         logger.With().Str("component", "trivia").Logger(),
		answerWindow:   window,
		points:         points,
		staffRoles:     roles,
		notifyRoleID:   opts.NotifyRoleID,
		defaultStaffCh: opts.DefaultStaffChannelID,
		unit:           unit,
		now:            clock,
		schedulers:     make(map[string]*scheduler),
		baseCtx:        ctx,
		cancel:         cancel,
	}
	s.desk = newReviewDesk(s)
	return s
}

// StartContest validates the request, announces the contest and arms its scheduler.
func (s *Service) StartContest(ctx context.Context, req StartRequest) (contest.State, error) {
	if req.IntervalMinutes <= 0 {
		return contest.State{}, contest.ErrInvalidInterval
	}
	if req.ServerID == "" || req.PublicChannelID == "" {
		return contest.State{}, errors.New("server and public channel are required")
	}
	if req.StaffChannelID == "" {
		req.StaffChannelID = s.defaultStaffCh
	}
	if req.StaffChannelID == "" {
		req.StaffChannelID = req.PublicChannelID
	}
	if req.NotifyRoleID == "" {
		req.NotifyRoleID = s.notifyRoleID
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "trivia:start:"+req.ServerID, startLockTTL)
		if errors.Is(err, ErrLockHeld) {
			return contest.State{}, contest.ErrContestActive
		}
		if err != nil {
			return contest.State{}, err
		}
		defer func() {
			if err := unlock(); err != nil {
				s.logger.Warn().Err(err).Str("server_id", req.ServerID).Msg("release start lock failed")
			}
		}()
	}

	if s.running(req.ServerID) {
		return contest.State{}, contest.ErrContestActive
	}
	existing, err := s.store.GetContest(ctx, req.ServerID)
	switch {
	case err == nil && existing.Active:
		return contest.State{}, contest.ErrContestActive
	case err != nil && !errors.Is(err, contest.ErrNotFound):
		return contest.State{}, fmt.Errorf("load contest: %w", err)
	}

	state := contest.State{
		ServerID:        req.ServerID,
		IntervalMinutes: req.IntervalMinutes,
		Active:          true,
		NotifyRoleID:    req.NotifyRoleID,
		PublicChannelID: req.PublicChannelID,
		StaffChannelID:  req.StaffChannelID,
		StartedAt:       s.now(),
	}

	info, err := s.platform.Send(ctx, state.PublicChannelID, renderInfo(state, leaderboard.Render(nil, 0)))
	if err != nil {
		return contest.State{}, fmt.Errorf("announce contest: %w", err)
	}
	state.InfoMessage = info
	if err := s.platform.Pin(ctx, info); err != nil {
		s.logger.Warn().Err(err).Str("server_id", state.ServerID).Msg("pin info message failed")
	}

	panel, err := s.platform.Send(ctx, state.StaffChannelID, renderPanel(state))
	if err != nil {
		return contest.State{}, fmt.Errorf("post control panel: %w", err)
	}
	state.ControlPanelMessage = panel

	if err := s.board.Clear(ctx, req.ServerID); err != nil {
		return contest.State{}, err
	}
	if err := s.store.SaveContest(ctx, state); err != nil {
		return contest.State{}, fmt.Errorf("save contest: %w", err)
	}
	for _, r := range s.desk.drop(state.ServerID) {
		if err := s.platform.Delete(ctx, r.prompt); err != nil {
			s.logger.Warn().Err(err).Str("server_id", state.ServerID).Str("question_id", r.question.ID).Msg("delete stale staff prompt failed")
		}
	}

	s.launch(state, s.interval(state), req.StartNow)
	s.board.PublishContest(ctx, state, string(statusRunning))

	s.logger.Info().
		Str("server_id", state.ServerID).
		Str("actor_id", req.ActorID).
		Int("interval_minutes", state.IntervalMinutes).
		Bool("start_now", req.StartNow).
		Msg("contest started")
	return state, nil
}

// SetPaused flips the pause flag. Ticks keep firing but skip while paused.
func (s *Service) SetPaused(ctx context.Context, serverID, actorID string, paused bool) (contest.State, error) {
	state, err := s.loadContest(ctx, serverID)
	if err != nil {
		return contest.State{}, err
	}
	if err := s.store.SetPaused(ctx, serverID, paused); err != nil {
		return contest.State{}, fmt.Errorf("set paused: %w", err)
	}
	state.Paused = paused

	s.refreshPanel(ctx, state)
	s.board.PublishContest(ctx, state, string(statusOf(state)))

	s.logger.Info().
		Str("server_id", serverID).
		Str("actor_id", actorID).
		Bool("paused", paused).
		Msg("contest pause toggled")
	return state, nil
}

// RefreshLeaderboard re-renders the public info message.
func (s *Service) RefreshLeaderboard(ctx context.Context, serverID string) error {
	state, err := s.loadContest(ctx, serverID)
	if err != nil {
		return err
	}
	return s.refreshInfo(ctx, state)
}

// AddQuestion appends a question to the server's bank. Without accepted
// answers the question is adjudicated by staff.
func (s *Service) AddQuestion(ctx context.Context, serverID, text string, acceptedAnswers []string, requireAll bool) (contest.Question, error) {
	return s.questions.Add(ctx, serverID, contest.Question{
		Text:              text,
		AcceptedAnswers:   acceptedAnswers,
		RequireAllAnswers: requireAll,
	})
}

// Recover re-arms the schedulers of contests that were active before a restart.
// The first tick keeps the original cadence anchored at StartedAt.
func (s *Service) Recover(ctx context.Context) (int, error) {
	states, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active contests: %w", err)
	}
	n := 0
	for _, state := range states {
		if s.running(state.ServerID) || state.IntervalMinutes <= 0 {
			continue
		}
		delay := phaseDelay(s.now(), state.StartedAt, s.interval(state))
		s.launch(state, delay, false)
		n++
		s.logger.Info().
			Str("server_id", state.ServerID).
			Dur("first_tick_in", delay).
			Msg("contest recovered")
	}
	return n, nil
}

// Running reports whether a scheduler is armed for the server.
func (s *Service) Running(serverID string) bool {
	return s.running(serverID)
}

// Shutdown stops every scheduler and waits for in-flight ticks.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) loadContest(ctx context.Context, serverID string) (contest.State, error) {
	state, err := s.store.GetContest(ctx, serverID)
	if errors.Is(err, contest.ErrNotFound) {
		return contest.State{}, contest.ErrNoContest
	}
	if err != nil {
		return contest.State{}, fmt.Errorf("load contest: %w", err)
	}
	return state, nil
}

// authorize fails with ErrUnauthorized unless the user holds a staff role.
func (s *Service) authorize(ctx context.Context, serverID, userID string) error {
	ok, err := s.platform.HasAnyRole(ctx, serverID, userID, s.staffRoles...)
	if err != nil {
		return fmt.Errorf("check roles: %w", err)
	}
	if !ok {
		return contest.ErrUnauthorized
	}
	return nil
}

func (s *Service) refreshPanel(ctx context.Context, state contest.State) {
	if state.ControlPanelMessage.IsZero() {
		return
	}
	if err := s.platform.Edit(ctx, state.ControlPanelMessage, renderPanel(state)); err != nil {
		s.logger.Warn().Err(err).Str("server_id", state.ServerID).Msg("control panel update failed")
	}
}

func (s *Service) refreshInfo(ctx context.Context, state contest.State) error {
	if state.InfoMessage.IsZero() {
		return nil
	}
	text, err := s.board.RenderText(ctx, state.ServerID)
	if err != nil {
		return err
	}
	if err := s.platform.Edit(ctx, state.InfoMessage, renderInfo(state, text)); err != nil {
		return fmt.Errorf("update info message: %w", err)
	}
	return nil
}

func (s *Service) interval(state contest.State) time.Duration {
	return time.Duration(state.IntervalMinutes) * s.unit
}

func (s *Service) budget(state contest.State) time.Duration {
	return time.Duration(float64(s.interval(state)) * s.answerWindow)
}

// phaseDelay returns the wait until the next tick of a cadence that began at startedAt.
func phaseDelay(now, startedAt time.Time, interval time.Duration) time.Duration {
	elapsed := now.Sub(startedAt)
	if elapsed < 0 || interval <= 0 {
		return interval
	}
	return interval - elapsed%interval
}
