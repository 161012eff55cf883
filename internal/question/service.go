package question

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/question/external"
)

type opentdbProvider interface {
	RequestToken(ctx context.Context) (string, error)
	Fetch(ctx context.Context, amount int, difficulty, qType, token string) ([]external.OpenTDBQuestion, error)
}

// TokenStore remembers Open Trivia DB sessions per server (implemented by TokenCache).
type TokenStore interface {
	Get(ctx context.Context, serverID string) (string, error)
	Set(ctx context.Context, serverID, token string) error
	Delete(ctx context.Context, serverID string) error
}

// Service owns the per-server question banks.
type Service struct {
	store   contest.QuestionStore
	opentdb opentdbProvider
	tokens  TokenStore
	logger  zerolog.Logger
}

type ServiceOptions struct {
	// OpenTDB enables FetchOpenTDB; nil disables it.
	OpenTDB opentdbProvider
	Tokens  TokenStore
}

func NewService(store contest.QuestionStore, logger zerolog.Logger, opts ServiceOptions) *Service {
	return &Service{
		store:   store,
		opentdb: opts.OpenTDB,
		tokens:  opts.Tokens,
		logger:  logger.With().Str("component", "question_bank").Logger(),
	}
}

// Normalize trims the question and drops blank answers. A question left
// without answers is reviewed by staff.
func Normalize(q contest.Question) (contest.Question, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return contest.Question{}, fmt.Errorf("%w: empty text", contest.ErrInvalidQuestion)
	}
	answers := make([]string, 0, len(q.AcceptedAnswers))
	for _, a := range q.AcceptedAnswers {
		if a = strings.TrimSpace(a); a != "" {
			answers = append(answers, a)
		}
	}
	if len(answers) == 0 {
		answers = nil
		q.RequireAllAnswers = false
	}
	q.AcceptedAnswers = answers
	return q, nil
}

// Add validates and appends a question to the server's bank.
func (s *Service) Add(ctx context.Context, serverID string, q contest.Question) (contest.Question, error) {
	q, err := Normalize(q)
	if err != nil {
		return contest.Question{}, err
	}
	saved, err := s.store.AddQuestion(ctx, serverID, q)
	if err != nil {
		return contest.Question{}, err
	}
	s.logger.Info().
		Str("server_id", serverID).
		Str("question_id", saved.ID).
		Bool("manual_review", saved.ManualReview()).
		Msg("question added")
	return saved, nil
}

// Next returns the oldest question the contest has not released yet.
func (s *Service) Next(ctx context.Context, state contest.State) (contest.Question, error) {
	return s.store.NextUnseen(ctx, state.ServerID, state.AskedQuestionIDs)
}

func (s *Service) Get(ctx context.Context, serverID, questionID string) (contest.Question, error) {
	return s.store.GetQuestion(ctx, serverID, questionID)
}

func (s *Service) List(ctx context.Context, serverID string) ([]contest.Question, error) {
	return s.store.ListQuestions(ctx, serverID)
}

// Import adds every valid question and skips the invalid ones.
func (s *Service) Import(ctx context.Context, serverID string, questions []contest.Question) (ImportResult, error) {
	var res ImportResult
	for _, q := range questions {
		if _, err := s.Add(ctx, serverID, q); err != nil {
			if errors.Is(err, contest.ErrInvalidQuestion) {
				res.Skipped++
				continue
			}
			return res, err
		}
		res.Added++
	}
	return res, nil
}

// Parse decodes a YAML question bank.
func Parse(r io.Reader) ([]contest.Question, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	return f.Questions, nil
}

// LoadFile reads a YAML question bank from disk.
func LoadFile(path string) ([]contest.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// FetchOpenTDB pulls amount questions from the Open Trivia DB into the bank.
// The server's session token is reused so later fetches return new questions.
func (s *Service) FetchOpenTDB(ctx context.Context, serverID string, amount int, difficulty string) (ImportResult, error) {
	if s.opentdb == nil {
		return ImportResult{}, errors.New("open trivia db source not configured")
	}
	if amount <= 0 || amount > 50 {
		return ImportResult{}, fmt.Errorf("amount must be between 1 and 50, got %d", amount)
	}

	token, err := s.sessionToken(ctx, serverID, false)
	if err != nil {
		return ImportResult{}, err
	}
	raw, err := s.opentdb.Fetch(ctx, amount, difficulty, "", token)
	if errors.Is(err, external.ErrTokenNotFound) {
		if token, err = s.sessionToken(ctx, serverID, true); err != nil {
			return ImportResult{}, err
		}
		raw, err = s.opentdb.Fetch(ctx, amount, difficulty, "", token)
	}
	if errors.Is(err, external.ErrTokenExhausted) {
		return ImportResult{}, fmt.Errorf("%w: open trivia db has nothing new", contest.ErrExhausted)
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("fetch open trivia db: %w", err)
	}

	questions := make([]contest.Question, 0, len(raw))
	for _, q := range raw {
		questions = append(questions, normalizeOpenTDB(q))
	}
	return s.Import(ctx, serverID, questions)
}

func (s *Service) sessionToken(ctx context.Context, serverID string, renew bool) (string, error) {
	if s.tokens == nil {
		return "", nil
	}
	if !renew {
		token, err := s.tokens.Get(ctx, serverID)
		if err != nil {
			s.logger.Warn().Err(err).Str("server_id", serverID).Msg("token cache read failed")
		}
		if token != "" {
			return token, nil
		}
	}
	token, err := s.opentdb.RequestToken(ctx)
	if err != nil {
		return "", fmt.Errorf("request open trivia db token: %w", err)
	}
	if err := s.tokens.Set(ctx, serverID, token); err != nil {
		s.logger.Warn().Err(err).Str("server_id", serverID).Msg("token cache write failed")
	}
	return token, nil
}

// normalizeOpenTDB turns a multiple-choice item into a free-text question
// that lists the options and accepts the correct one.
func normalizeOpenTDB(q external.OpenTDBQuestion) contest.Question {
	text := html.UnescapeString(q.Question)
	answer := html.UnescapeString(q.CorrectAnswer)
	if q.Type == "multiple" {
		options := []string{answer}
		for _, o := range q.IncorrectAnswer {
			options = append(options, html.UnescapeString(o))
		}
		sort.Strings(options)
		text = text + "\nOptions: " + strings.Join(options, " / ")
	}
	return contest.Question{
		Text:            text,
		AcceptedAnswers: []string{answer},
	}
}
