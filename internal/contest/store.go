package contest

import (
	"context"
	"time"
)

// ContestStore persists one State document per server.
type ContestStore interface {
	GetContest(ctx context.Context, serverID string) (State, error)
	// SaveContest overwrites the whole document.
	SaveContest(ctx context.Context, state State) error
	SetPaused(ctx context.Context, serverID string, paused bool) error
	SetActive(ctx context.Context, serverID string, active bool) error
	// MarkAsked adds questionID to the asked set (array union).
	MarkAsked(ctx context.Context, serverID, questionID string, at time.Time) error
	ListActive(ctx context.Context) ([]State, error)
}

// QuestionStore is the per-server question bank.
type QuestionStore interface {
	AddQuestion(ctx context.Context, serverID string, q Question) (Question, error)
	GetQuestion(ctx context.Context, serverID, questionID string) (Question, error)
	// NextUnseen returns the oldest question whose id is not in exclude, or ErrNotFound.
	NextUnseen(ctx context.Context, serverID string, exclude []string) (Question, error)
	ListQuestions(ctx context.Context, serverID string) ([]Question, error)
}

// LeaderboardStore keeps per-server standings.
type LeaderboardStore interface {
	// AwardPoint creates the entry or atomically increments it and appends questionID.
	AwardPoint(ctx context.Context, serverID string, p Participant, questionID string, points int) error
	ListLeaderboard(ctx context.Context, serverID string) ([]LeaderboardEntry, error)
	ClearLeaderboard(ctx context.Context, serverID string) error
}

// Store bundles every persistence capability the engine needs.
type Store interface {
	ContestStore
	QuestionStore
	LeaderboardStore
}
