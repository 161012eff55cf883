package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gokatarajesh/trivia-bot/internal/auth/jwt"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/store/memory"
)

const bank = `questions:
  - text: Capital of France?
    answers: [paris]
  - text: Name two primary colours
    answers: [red, blue]
    require_all: true
  - text: Describe your favourite city
`

func testEnv(store *memory.Store) *env {
	return &env{
		openStore: func(context.Context) (contest.Store, func(), error) {
			return store, func() {}, nil
		},
		logger: zerolog.Nop(),
	}
}

func run(t *testing.T, e *env, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(e)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQuestionsImportAndList(t *testing.T) {
	store := memory.NewStore()
	e := testEnv(store)

	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bank), 0o600))

	out, err := run(t, e, "questions", "import", "--server", "srv", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, "imported 3 questions, skipped 0\n", out)

	out, err = run(t, e, "questions", "list", "--server", "srv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "QUESTION")
	assert.Contains(t, out, "Capital of France?")
	assert.Contains(t, out, "manual")
}

func TestQuestionsImportNeedsOneSource(t *testing.T) {
	e := testEnv(memory.NewStore())

	_, err := run(t, e, "questions", "import", "--server", "srv")
	assert.Error(t, err)

	_, err = run(t, e, "questions", "import", "--server", "srv", "--file", "x.yaml", "--opentdb")
	assert.Error(t, err)
}

func TestLeaderboardExport(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.AwardPoint(ctx, "srv", contest.Participant{ID: "1", DisplayName: "alice"}, "q1", 1))
	require.NoError(t, store.AwardPoint(ctx, "srv", contest.Participant{ID: "2", DisplayName: "bob"}, "q2", 1))
	require.NoError(t, store.AwardPoint(ctx, "srv", contest.Participant{ID: "1", DisplayName: "alice"}, "q3", 1))

	out := filepath.Join(t.TempDir(), "standings.xlsx")
	msg, err := run(t, testEnv(store), "leaderboard", "export", "--server", "srv", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, msg, "wrote 1 server(s)")

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("server srv")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "alice", rows[1][2])
	assert.Equal(t, "bob", rows[2][2])
}

func TestLeaderboardExportWithoutContests(t *testing.T) {
	_, err := run(t, testEnv(memory.NewStore()), "leaderboard", "export", "--out", filepath.Join(t.TempDir(), "x.xlsx"))
	assert.ErrorContains(t, err, "no active contests")
}

func TestLeaderboardShow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.AwardPoint(ctx, "srv", contest.Participant{ID: "1", DisplayName: "alice"}, "q1", 1))

	out, err := run(t, testEnv(store), "leaderboard", "show", "--server", "srv")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
}

func TestTokenIssue(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_ISSUER", "trivia-test")

	out, err := run(t, testEnv(memory.NewStore()), "token", "issue", "--subject", "mod-1", "--name", "Mod", "--servers", "a,b")
	require.NoError(t, err)

	tokens := jwt.NewManager(jwt.TokenConfig{Secret: []byte("cli-secret"), Issuer: "trivia-test"})
	claims, err := tokens.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "mod-1", claims.Subject)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, []string{"a", "b"}, claims.ServerIDs)
}

func TestTokenIssueRejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	_, err := run(t, testEnv(memory.NewStore()), "token", "issue", "--subject", "x", "--role", "player")
	assert.Error(t, err)
}
