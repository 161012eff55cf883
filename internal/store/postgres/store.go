package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// Store persists contests, question banks and leaderboards in Postgres.
type Store struct {
	db  DBTX
	now func() time.Time
}

var _ contest.Store = (*Store)(nil)

// NewStore wraps a pool (or any DBTX) into a contest.Store.
func NewStore(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) GetContest(ctx context.Context, serverID string) (contest.State, error) {
	state, err := scanContest(s.db.QueryRow(ctx, getContest, serverID))
	if errors.Is(err, pgx.ErrNoRows) {
		return contest.State{}, contest.ErrNotFound
	}
	if err != nil {
		return contest.State{}, fmt.Errorf("get contest %s: %w", serverID, err)
	}
	return state, nil
}

func (s *Store) SaveContest(ctx context.Context, state contest.State) error {
	if state.StartedAt.IsZero() {
		state.StartedAt = s.now()
	}
	_, err := s.db.Exec(ctx, upsertContest,
		state.ServerID,
		state.IntervalMinutes,
		state.Paused,
		state.Active,
		nonNil(state.AskedQuestionIDs),
		state.NotifyRoleID,
		state.PublicChannelID,
		state.StaffChannelID,
		state.InfoMessage.ChannelID,
		state.InfoMessage.MessageID,
		state.ControlPanelMessage.ChannelID,
		state.ControlPanelMessage.MessageID,
		state.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("save contest %s: %w", state.ServerID, err)
	}
	return nil
}

func (s *Store) SetPaused(ctx context.Context, serverID string, paused bool) error {
	return s.execOne(ctx, "set paused", serverID, setContestPaused, serverID, paused)
}

func (s *Store) SetActive(ctx context.Context, serverID string, active bool) error {
	return s.execOne(ctx, "set active", serverID, setContestActive, serverID, active)
}

func (s *Store) MarkAsked(ctx context.Context, serverID, questionID string, at time.Time) error {
	if at.IsZero() {
		at = s.now()
	}
	return s.execOne(ctx, "mark asked", serverID, markQuestionAsked, serverID, questionID, at)
}

func (s *Store) ListActive(ctx context.Context) ([]contest.State, error) {
	rows, err := s.db.Query(ctx, listActiveContests)
	if err != nil {
		return nil, fmt.Errorf("list active contests: %w", err)
	}
	defer rows.Close()

	var out []contest.State
	for rows.Next() {
		state, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contest: %w", err)
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

func (s *Store) AddQuestion(ctx context.Context, serverID string, q contest.Question) (contest.Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	var answers []string
	if len(q.AcceptedAnswers) > 0 {
		answers = q.AcceptedAnswers
	}
	if _, err := s.db.Exec(ctx, insertQuestion, serverID, q.ID, q.Text, answers, q.RequireAllAnswers, q.CreatedAt); err != nil {
		return contest.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (s *Store) GetQuestion(ctx context.Context, serverID, questionID string) (contest.Question, error) {
	q, err := scanQuestion(s.db.QueryRow(ctx, getQuestion, serverID, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return contest.Question{}, contest.ErrNotFound
	}
	if err != nil {
		return contest.Question{}, fmt.Errorf("get question %s: %w", questionID, err)
	}
	return q, nil
}

func (s *Store) NextUnseen(ctx context.Context, serverID string, exclude []string) (contest.Question, error) {
	// A NULL array would make "<> ALL" filter out every row.
	q, err := scanQuestion(s.db.QueryRow(ctx, nextUnseenQuestion, serverID, nonNil(exclude)))
	if errors.Is(err, pgx.ErrNoRows) {
		return contest.Question{}, contest.ErrNotFound
	}
	if err != nil {
		return contest.Question{}, fmt.Errorf("next unseen question: %w", err)
	}
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context, serverID string) ([]contest.Question, error) {
	rows, err := s.db.Query(ctx, listQuestions, serverID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []contest.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) AwardPoint(ctx context.Context, serverID string, p contest.Participant, questionID string, points int) error {
	if points <= 0 {
		points = contest.DefaultPoints
	}
	if _, err := s.db.Exec(ctx, awardPoint, serverID, p.ID, p.DisplayName, points, questionID); err != nil {
		return fmt.Errorf("award point: %w", err)
	}
	return nil
}

func (s *Store) ListLeaderboard(ctx context.Context, serverID string) ([]contest.LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, listLeaderboard, serverID)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	defer rows.Close()

	var out []contest.LeaderboardEntry
	for rows.Next() {
		var e contest.LeaderboardEntry
		if err := rows.Scan(&e.ParticipantID, &e.DisplayName, &e.Score, &e.AnsweredQuestionIDs, &e.Rank); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ClearLeaderboard(ctx context.Context, serverID string) error {
	if _, err := s.db.Exec(ctx, clearLeaderboard, serverID); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	return nil
}

func (s *Store) execOne(ctx context.Context, op, serverID, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, serverID, err)
	}
	if tag.RowsAffected() == 0 {
		return contest.ErrNotFound
	}
	return nil
}

func scanContest(row pgx.Row) (contest.State, error) {
	var s contest.State
	err := row.Scan(
		&s.ServerID,
		&s.IntervalMinutes,
		&s.Paused,
		&s.Active,
		&s.AskedQuestionIDs,
		&s.NotifyRoleID,
		&s.PublicChannelID,
		&s.StaffChannelID,
		&s.InfoMessage.ChannelID,
		&s.InfoMessage.MessageID,
		&s.ControlPanelMessage.ChannelID,
		&s.ControlPanelMessage.MessageID,
		&s.StartedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func scanQuestion(row pgx.Row) (contest.Question, error) {
	var q contest.Question
	err := row.Scan(&q.ID, &q.Text, &q.AcceptedAnswers, &q.RequireAllAnswers, &q.CreatedAt)
	return q, err
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
