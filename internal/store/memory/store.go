package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// Store is an in-memory implementation of contest.Store used for development
// and tests. Every method is a single critical section, which gives the same
// atomicity the document store provides for array-union and increment updates.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	contests    map[string]contest.State
	questions   map[string][]contest.Question
	leaderboard map[string]map[string]*contest.LeaderboardEntry
	rankSeq     int64
}

var _ contest.Store = (*Store)(nil)

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock is used by tests that need deterministic timestamps.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		now:         now,
		contests:    make(map[string]contest.State),
		questions:   make(map[string][]contest.Question),
		leaderboard: make(map[string]map[string]*contest.LeaderboardEntry),
	}
}

func (s *Store) GetContest(_ context.Context, serverID string) (contest.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.contests[serverID]
	if !ok {
		return contest.State{}, contest.ErrNotFound
	}
	return cloneState(state), nil
}

func (s *Store) SaveContest(_ context.Context, state contest.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state = cloneState(state)
	state.UpdatedAt = s.now()
	s.contests[state.ServerID] = state
	return nil
}

func (s *Store) SetPaused(_ context.Context, serverID string, paused bool) error {
	return s.update(serverID, func(state *contest.State) {
		state.Paused = paused
	})
}

func (s *Store) SetActive(_ context.Context, serverID string, active bool) error {
	return s.update(serverID, func(state *contest.State) {
		state.Active = active
	})
}

func (s *Store) MarkAsked(_ context.Context, serverID, questionID string, _ time.Time) error {
	return s.update(serverID, func(state *contest.State) {
		if !state.HasAsked(questionID) {
			state.AskedQuestionIDs = append(state.AskedQuestionIDs, questionID)
		}
	})
}

func (s *Store) ListActive(_ context.Context) ([]contest.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []contest.State
	for _, state := range s.contests {
		if state.Active {
			out = append(out, cloneState(state))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServerID < out[j].ServerID })
	return out, nil
}

func (s *Store) update(serverID string, fn func(*contest.State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.contests[serverID]
	if !ok {
		return contest.ErrNotFound
	}
	fn(&state)
	state.UpdatedAt = s.now()
	s.contests[serverID] = state
	return nil
}

func (s *Store) AddQuestion(_ context.Context, serverID string, q contest.Question) (contest.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	q.AcceptedAnswers = append([]string(nil), q.AcceptedAnswers...)
	s.questions[serverID] = append(s.questions[serverID], q)
	return q, nil
}

func (s *Store) GetQuestion(_ context.Context, serverID, questionID string) (contest.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions[serverID] {
		if q.ID == questionID {
			return q, nil
		}
	}
	return contest.Question{}, contest.ErrNotFound
}

func (s *Store) NextUnseen(_ context.Context, serverID string, exclude []string) (contest.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	for _, q := range s.questions[serverID] {
		if _, seen := skip[q.ID]; !seen {
			return q, nil
		}
	}
	return contest.Question{}, contest.ErrNotFound
}

func (s *Store) ListQuestions(_ context.Context, serverID string) ([]contest.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contest.Question(nil), s.questions[serverID]...), nil
}

func (s *Store) AwardPoint(_ context.Context, serverID string, p contest.Participant, questionID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	board := s.leaderboard[serverID]
	if board == nil {
		board = make(map[string]*contest.LeaderboardEntry)
		s.leaderboard[serverID] = board
	}
	entry, ok := board[p.ID]
	if !ok {
		s.rankSeq++
		board[p.ID] = &contest.LeaderboardEntry{
			ParticipantID:       p.ID,
			DisplayName:         p.DisplayName,
			Score:               points,
			AnsweredQuestionIDs: []string{questionID},
			Rank:                s.rankSeq,
		}
		return nil
	}
	entry.Score += points
	if p.DisplayName != "" {
		entry.DisplayName = p.DisplayName
	}
	for _, id := range entry.AnsweredQuestionIDs {
		if id == questionID {
			return nil
		}
	}
	entry.AnsweredQuestionIDs = append(entry.AnsweredQuestionIDs, questionID)
	return nil
}

func (s *Store) ListLeaderboard(_ context.Context, serverID string) ([]contest.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contest.LeaderboardEntry, 0, len(s.leaderboard[serverID]))
	for _, entry := range s.leaderboard[serverID] {
		cp := *entry
		cp.AnsweredQuestionIDs = append([]string(nil), entry.AnsweredQuestionIDs...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (s *Store) ClearLeaderboard(_ context.Context, serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leaderboard, serverID)
	return nil
}

func cloneState(state contest.State) contest.State {
	state.AskedQuestionIDs = append([]string(nil), state.AskedQuestionIDs...)
	return state
}
