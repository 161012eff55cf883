package trivia

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-bot/internal/auth"
	"github.com/gokatarajesh/trivia-bot/internal/auth/jwt"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	httperrors "github.com/gokatarajesh/trivia-bot/pkg/http/errors"
)

func newTestMux(h *harness, claims *jwt.Claims) *http.ServeMux {
	mux := http.NewServeMux()
	wrap := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims != nil {
				r = r.WithContext(auth.WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
	NewHTTPHandler(h.svc, zerolog.Nop()).Register(mux, wrap)
	return mux
}

func doJSON(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHTTPHandler_ContestLifecycle(t *testing.T) {
	h := newHarness(t, ServiceOptions{}, nil)
	claims := &jwt.Claims{Role: auth.RoleStaff}
	claims.Subject = "staff-1"
	mux := newTestMux(h, claims)

	rec := doJSON(t, mux, http.MethodPost, "/v1/contests/srv/questions", `{"text":"2+2?","accepted_answers":["4"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var q contest.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.NotEmpty(t, q.ID)

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/questions", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httperrors.ErrCodeInvalidQuestion, errorCode(t, rec))

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/pause", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httperrors.ErrCodeNoContest, errorCode(t, rec))

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/start", `{"public_channel_id":"public","interval_minutes":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httperrors.ErrCodeInvalidInterval, errorCode(t, rec))

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/start", `{"interval_minutes":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/start", `{"public_channel_id":"public","staff_channel_id":"staff","interval_minutes":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var state contest.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Active)
	assert.Equal(t, 5, state.IntervalMinutes)

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/start", `{"public_channel_id":"public","interval_minutes":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeContestActive, errorCode(t, rec))

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Paused)

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.False(t, state.Paused)

	rec = doJSON(t, mux, http.MethodPost, "/v1/contests/srv/leaderboard/refresh", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHTTPHandler_Scope(t *testing.T) {
	h := newHarness(t, ServiceOptions{}, nil)

	rec := doJSON(t, newTestMux(h, nil), http.MethodPost, "/v1/contests/srv/pause", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	scoped := &jwt.Claims{Role: auth.RoleStaff, ServerIDs: []string{"other"}}
	rec = doJSON(t, newTestMux(h, scoped), http.MethodPost, "/v1/contests/srv/pause", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, httperrors.ErrCodeForbidden, errorCode(t, rec))
}
