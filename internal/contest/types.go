package contest

import (
	"time"
)

// DefaultPoints is awarded for every won question unless configured otherwise.
const DefaultPoints = 1

// MessageRef locates a message the engine keeps in sync.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// IsZero reports whether the reference points nowhere.
func (r MessageRef) IsZero() bool {
	return r.ChannelID == "" || r.MessageID == ""
}

// State is the durable record of one contest for a chat server.
type State struct {
	ServerID            string     `json:"server_id"`
	IntervalMinutes     int        `json:"interval_minutes"`
	Paused              bool       `json:"paused"`
	Active              bool       `json:"active"`
	AskedQuestionIDs    []string   `json:"asked_question_ids"`
	NotifyRoleID        string     `json:"notify_role_id"`
	PublicChannelID     string     `json:"public_channel_id"`
	StaffChannelID      string     `json:"staff_channel_id"`
	InfoMessage         MessageRef `json:"info_message"`
	ControlPanelMessage MessageRef `json:"control_panel_message"`
	StartedAt           time.Time  `json:"started_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Interval converts IntervalMinutes to a duration.
func (s State) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// HasAsked reports whether the question was already released in this contest.
func (s State) HasAsked(questionID string) bool {
	for _, id := range s.AskedQuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// Question is an immutable bank entry. A question without accepted answers is
// always resolved by staff review.
type Question struct {
	ID                string    `json:"id" yaml:"id,omitempty"`
	Text              string    `json:"text" yaml:"text"`
	AcceptedAnswers   []string  `json:"accepted_answers,omitempty" yaml:"answers,omitempty"`
	RequireAllAnswers bool      `json:"require_all_answers,omitempty" yaml:"require_all,omitempty"`
	CreatedAt         time.Time `json:"created_at" yaml:"-"`
}

// ManualReview reports whether staff must pick the winner.
func (q Question) ManualReview() bool {
	return len(q.AcceptedAnswers) == 0
}

// Participant identifies a chat member that can win a question.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// LeaderboardEntry holds one participant's standing in the current contest.
type LeaderboardEntry struct {
	ParticipantID       string   `json:"participant_id"`
	DisplayName         string   `json:"display_name"`
	Score               int      `json:"score"`
	AnsweredQuestionIDs []string `json:"answered_question_ids"`
	// Rank orders entries by their first win and breaks score ties.
	Rank int64 `json:"-"`
}
