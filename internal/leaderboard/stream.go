package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/trivia-bot/pkg/http/errors"
	ws "github.com/gokatarajesh/trivia-bot/pkg/http/ws"
)

// StreamHandler serves /ws/leaderboards: clients subscribe to one server's
// standings, or to every server when no server_id is given.
type StreamHandler struct {
	svc      *Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewStreamHandler builds the handler. allowedOrigins empty accepts any origin.
func NewStreamHandler(svc *Service, hub *ws.Hub, allowedOrigins []string, logger zerolog.Logger) *StreamHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &StreamHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		logger: logger.With().Str("component", "leaderboard_stream").Logger(),
	}
}

// HandleWebSocket upgrades the request and streams updates until the peer leaves.
func (h *StreamHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	serverID := r.URL.Query().Get("server_id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.New()
	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(id, wsConn, serverID)
	go wsConn.WritePump()

	h.sendSnapshot(r.Context(), wsConn, serverID)
	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), id, wsConn, msg)
	})

	h.hub.UnregisterConnection(id)
}

func (h *StreamHandler) handleMessage(ctx context.Context, id uuid.UUID, conn *ws.Connection, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeSubscribe:
		var req ws.SubscribePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid subscribe payload")
		}
		h.hub.Subscribe(id, req.ServerID)
		h.sendSnapshot(ctx, conn, req.ServerID)
		return nil
	case ws.TypePing:
		return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	default:
		return sendError(conn, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *StreamHandler) sendSnapshot(ctx context.Context, conn *ws.Connection, serverID string) {
	if serverID == "" {
		return
	}
	msg, err := h.svc.Snapshot(ctx, serverID)
	if err != nil {
		h.logger.Warn().Err(err).Str("server_id", serverID).Msg("leaderboard snapshot failed")
		_ = sendError(conn, "", httperrors.ErrCodeLeaderboardFetchFailed, "Could not load leaderboard")
		return
	}
	if err := conn.Send(msg); err != nil {
		h.logger.Debug().Err(err).Msg("snapshot send failed")
	}
}

// Snapshot builds a leaderboard_update message with the current top entries.
func (s *Service) Snapshot(ctx context.Context, serverID string) (ws.Message, error) {
	entries, err := s.Top(ctx, serverID, s.topN)
	if err != nil {
		return ws.Message{}, err
	}
	raw, err := json.Marshal(ws.LeaderboardUpdatePayload{
		ServerID:  serverID,
		Top:       toWSEntries(entries),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ws.Message{}, err
	}
	return ws.Message{Type: ws.TypeLeaderboardUpdate, Payload: raw}, nil
}

func sendError(conn *ws.Connection, requestID, code, message string) error {
	raw, err := json.Marshal(ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	return conn.Send(ws.Message{Type: ws.TypeError, Payload: raw, RequestID: requestID})
}
