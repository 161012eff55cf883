package question

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/question/external"
	"github.com/gokatarajesh/trivia-bot/internal/store/memory"
)

type stubOpentdb struct {
	questions []external.OpenTDBQuestion
	tokens    []string
	fetchErrs []error
	seen      []string
}

func (s *stubOpentdb) RequestToken(context.Context) (string, error) {
	token := "tok"
	if len(s.tokens) > 0 {
		token, s.tokens = s.tokens[0], s.tokens[1:]
	}
	return token, nil
}

func (s *stubOpentdb) Fetch(_ context.Context, amount int, _, _ string, token string) ([]external.OpenTDBQuestion, error) {
	s.seen = append(s.seen, token)
	if len(s.fetchErrs) > 0 {
		err := s.fetchErrs[0]
		s.fetchErrs = s.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.questions[:min(amount, len(s.questions))], nil
}

func newTokenCache(t *testing.T) *TokenCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenCache(client, 0)
}

func TestNormalize(t *testing.T) {
	q, err := Normalize(contest.Question{Text: "  2+2?  ", AcceptedAnswers: []string{" 4 ", "", "four"}})
	require.NoError(t, err)
	assert.Equal(t, "2+2?", q.Text)
	assert.Equal(t, []string{"4", "four"}, q.AcceptedAnswers)

	q, err = Normalize(contest.Question{Text: "Draw a cat", AcceptedAnswers: []string{"  "}, RequireAllAnswers: true})
	require.NoError(t, err)
	assert.True(t, q.ManualReview())
	assert.False(t, q.RequireAllAnswers)

	_, err = Normalize(contest.Question{Text: "   "})
	assert.ErrorIs(t, err, contest.ErrInvalidQuestion)
}

func TestServiceNextFollowsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore(), zerolog.Nop(), ServiceOptions{})

	first, err := svc.Add(ctx, "srv", contest.Question{Text: "first", AcceptedAnswers: []string{"a"}})
	require.NoError(t, err)
	second, err := svc.Add(ctx, "srv", contest.Question{Text: "second"})
	require.NoError(t, err)

	next, err := svc.Next(ctx, contest.State{ServerID: "srv"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, next.ID)

	next, err = svc.Next(ctx, contest.State{ServerID: "srv", AskedQuestionIDs: []string{first.ID}})
	require.NoError(t, err)
	assert.Equal(t, second.ID, next.ID)

	_, err = svc.Next(ctx, contest.State{ServerID: "srv", AskedQuestionIDs: []string{first.ID, second.ID}})
	assert.ErrorIs(t, err, contest.ErrNotFound)

	_, err = svc.Next(ctx, contest.State{ServerID: "other"})
	assert.ErrorIs(t, err, contest.ErrNotFound)
}

func TestParseAndImport(t *testing.T) {
	doc := `
questions:
  - text: "What is 6 x 7?"
    answers: ["42"]
  - text: "Name both primary colors red and blue"
    answers: ["red", "blue"]
    require_all: true
  - text: "   "
  - text: "Share your best meme"
`
	questions, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, questions, 4)
	assert.True(t, questions[1].RequireAllAnswers)

	svc := NewService(memory.NewStore(), zerolog.Nop(), ServiceOptions{})
	res, err := svc.Import(context.Background(), "srv", questions)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 3, Skipped: 1}, res)

	list, err := svc.List(context.Background(), "srv")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[2].ManualReview())
}

func TestParseEmptyDocument(t *testing.T) {
	questions, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestFetchOpenTDBConvertsQuestions(t *testing.T) {
	ctx := context.Background()
	src := &stubOpentdb{questions: []external.OpenTDBQuestion{
		{Type: "multiple", Question: "Who wrote &quot;Hamlet&quot;?", CorrectAnswer: "Shakespeare", IncorrectAnswer: []string{"Marlowe", "Jonson", "Bacon"}},
		{Type: "boolean", Question: "The sky is blue.", CorrectAnswer: "True", IncorrectAnswer: []string{"False"}},
	}}
	tokens := newTokenCache(t)
	svc := NewService(memory.NewStore(), zerolog.Nop(), ServiceOptions{OpenTDB: src, Tokens: tokens})

	res, err := svc.FetchOpenTDB(ctx, "srv", 2, DifficultyEasy)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	list, err := svc.List(ctx, "srv")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Who wrote \"Hamlet\"?\nOptions: Bacon / Jonson / Marlowe / Shakespeare", list[0].Text)
	assert.Equal(t, []string{"Shakespeare"}, list[0].AcceptedAnswers)
	assert.Equal(t, "The sky is blue.", list[1].Text)

	cached, err := tokens.Get(ctx, "srv")
	require.NoError(t, err)
	assert.Equal(t, "tok", cached)
}

func TestFetchOpenTDBRenewsExpiredToken(t *testing.T) {
	ctx := context.Background()
	src := &stubOpentdb{
		questions: []external.OpenTDBQuestion{{Type: "boolean", Question: "Q", CorrectAnswer: "False"}},
		tokens:    []string{"fresh"},
		fetchErrs: []error{external.ErrTokenNotFound, nil},
	}
	tokens := newTokenCache(t)
	require.NoError(t, tokens.Set(ctx, "srv", "stale"))
	svc := NewService(memory.NewStore(), zerolog.Nop(), ServiceOptions{OpenTDB: src, Tokens: tokens})

	res, err := svc.FetchOpenTDB(ctx, "srv", 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, []string{"stale", "fresh"}, src.seen)
}

func TestFetchOpenTDBExhausted(t *testing.T) {
	src := &stubOpentdb{fetchErrs: []error{external.ErrTokenExhausted}}
	svc := NewService(memory.NewStore(), zerolog.Nop(), ServiceOptions{OpenTDB: src, Tokens: newTokenCache(t)})

	_, err := svc.FetchOpenTDB(context.Background(), "srv", 5, "")
	assert.ErrorIs(t, err, contest.ErrExhausted)
}

func TestFetchOpenTDBRejectsBadAmount(t *testing.T) {
	svc := NewService(memory.NewStore(), zerolog.Nop(), ServiceOptions{OpenTDB: &stubOpentdb{}})
	_, err := svc.FetchOpenTDB(context.Background(), "srv", 0, "")
	assert.Error(t, err)
}
