package trivia

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-bot/internal/auth"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	httperrors "github.com/gokatarajesh/trivia-bot/pkg/http/errors"
)

// HTTPHandler exposes the staff contest API. Routes expect auth.Middleware in front.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger.With().Str("component", "trivia_http").Logger()}
}

// Register mounts the staff routes on mux, wrapped by wrap (authentication).
func (h *HTTPHandler) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("POST /v1/contests/{server}/start", wrap(http.HandlerFunc(h.Start)))
	mux.Handle("POST /v1/contests/{server}/pause", wrap(http.HandlerFunc(h.Pause)))
	mux.Handle("POST /v1/contests/{server}/resume", wrap(http.HandlerFunc(h.Resume)))
	mux.Handle("POST /v1/contests/{server}/leaderboard/refresh", wrap(http.HandlerFunc(h.RefreshLeaderboard)))
	mux.Handle("POST /v1/contests/{server}/questions", wrap(http.HandlerFunc(h.AddQuestion)))
}

type startBody struct {
	PublicChannelID string `json:"public_channel_id"`
	StaffChannelID  string `json:"staff_channel_id"`
	IntervalMinutes int    `json:"interval_minutes"`
	NotifyRoleID    string `json:"notify_role_id"`
	StartNow        bool   `json:"start_now"`
}

type questionBody struct {
	Text              string   `json:"text"`
	AcceptedAnswers   []string `json:"accepted_answers"`
	RequireAllAnswers bool     `json:"require_all_answers"`
}

// Start handles POST /v1/contests/{server}/start.
func (h *HTTPHandler) Start(w http.ResponseWriter, r *http.Request) {
	serverID, actor, ok := h.scope(w, r)
	if !ok {
		return
	}
	var body startBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if body.PublicChannelID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "public_channel_id is required", "public_channel_id")
		return
	}

	state, err := h.svc.StartContest(r.Context(), StartRequest{
		ServerID:        serverID,
		PublicChannelID: body.PublicChannelID,
		StaffChannelID:  body.StaffChannelID,
		IntervalMinutes: body.IntervalMinutes,
		NotifyRoleID:    body.NotifyRoleID,
		StartNow:        body.StartNow,
		ActorID:         actor,
	})
	if err != nil {
		h.respondErr(w, serverID, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// Pause handles POST /v1/contests/{server}/pause.
func (h *HTTPHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Resume handles POST /v1/contests/{server}/resume.
func (h *HTTPHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *HTTPHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	serverID, actor, ok := h.scope(w, r)
	if !ok {
		return
	}
	state, err := h.svc.SetPaused(r.Context(), serverID, actor, paused)
	if err != nil {
		h.respondErr(w, serverID, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// RefreshLeaderboard handles POST /v1/contests/{server}/leaderboard/refresh.
func (h *HTTPHandler) RefreshLeaderboard(w http.ResponseWriter, r *http.Request) {
	serverID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.svc.RefreshLeaderboard(r.Context(), serverID); err != nil {
		h.respondErr(w, serverID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddQuestion handles POST /v1/contests/{server}/questions.
func (h *HTTPHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	serverID, _, ok := h.scope(w, r)
	if !ok {
		return
	}
	var body questionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	q, err := h.svc.AddQuestion(r.Context(), serverID, body.Text, body.AcceptedAnswers, body.RequireAllAnswers)
	if err != nil {
		h.respondErr(w, serverID, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// scope resolves the server path value and checks the token covers it.
func (h *HTTPHandler) scope(w http.ResponseWriter, r *http.Request) (serverID, actor string, ok bool) {
	serverID = r.PathValue("server")
	if serverID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "server id required")
		return "", "", false
	}
	claims, found := auth.ClaimsFromContext(r.Context())
	if !found {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return "", "", false
	}
	if !claims.CanManage(serverID) {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Token does not cover this server")
		return "", "", false
	}
	return serverID, claims.Subject, true
}

func (h *HTTPHandler) respondErr(w http.ResponseWriter, serverID string, err error) {
	switch {
	case errors.Is(err, contest.ErrInvalidInterval):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidInterval, err.Error(), "interval_minutes")
	case errors.Is(err, contest.ErrInvalidQuestion):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidQuestion, err.Error(), "text")
	case errors.Is(err, contest.ErrContestActive):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeContestActive, err.Error())
	case errors.Is(err, contest.ErrNoContest):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNoContest, err.Error())
	default:
		h.logger.Error().Err(err).Str("server_id", serverID).Msg("staff request failed")
		httperrors.RespondInternalError(w, "request failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
