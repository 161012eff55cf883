package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/store/memory"
	ws "github.com/gokatarajesh/trivia-bot/pkg/http/ws"
)

func TestStreamHandler(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, nil, zerolog.Nop(), ServiceOptions{})
	require.NoError(t, svc.AwardPoint(context.Background(), "srv", contest.Participant{ID: "u1", DisplayName: "Ann"}, "q1", 1))

	hub := ws.NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(NewStreamHandler(svc, hub, nil, zerolog.Nop()).HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?server_id=srv"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeLeaderboardUpdate, msg.Type)
	var payload ws.LeaderboardUpdatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	require.Len(t, payload.Top, 1)
	assert.Equal(t, "Ann", payload.Top[0].DisplayName)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: "r1"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypePong, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: "bogus"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeError, msg.Type)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.BroadcastToServer("srv", ws.Message{Type: ws.TypeContestUpdate, Payload: json.RawMessage(`{}`)}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeContestUpdate, msg.Type)
}
