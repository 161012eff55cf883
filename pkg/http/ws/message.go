package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSubscribe = "subscribe"
	TypePing      = "ping"

	// Server -> Client
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeContestUpdate     = "contest_update"
	TypeError             = "error"
	TypePong              = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// SubscribePayload switches the connection to another server's feed.
type SubscribePayload struct {
	ServerID string `json:"server_id"`
}

type LeaderboardUpdatePayload struct {
	ServerID   string             `json:"server_id"`
	QuestionID string             `json:"question_id,omitempty"`
	Top        []LeaderboardEntry `json:"top"`
	UpdatedAt  string             `json:"updated_at"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Score         int    `json:"score"`
	Answered      int    `json:"answered"`
}

// ContestUpdatePayload is pushed when a contest starts, pauses, resumes or runs out of questions.
type ContestUpdatePayload struct {
	ServerID        string `json:"server_id"`
	Status          string `json:"status"`
	IntervalMinutes int    `json:"interval_minutes"`
	QuestionsAsked  int    `json:"questions_asked"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
