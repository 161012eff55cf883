package chat

import (
	"context"
	"time"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// Message is an incoming chat message.
type Message struct {
	ID         string
	ServerID   string
	ChannelID  string
	AuthorID   string
	AuthorName string
	FromBot    bool
	Content    string
	SentAt     time.Time
}

// Author returns the message sender as a contest participant.
func (m Message) Author() contest.Participant {
	return contest.Participant{ID: m.AuthorID, DisplayName: m.AuthorName}
}

// Button is an interactive button attached to an outgoing message.
type Button struct {
	ID    string
	Label string
}

// Outgoing describes a message to send or an edit to apply.
type Outgoing struct {
	// ServerID scopes button interactions when the message lives outside the
	// server's own channel, e.g. a staff control panel.
	ServerID string
	Title    string
	Text     string
	Mention  string
	Buttons  []Button
}

// PickerRequest asks the platform to render a single-select participant picker.
type PickerRequest struct {
	ServerID  string
	ChannelID string
	// SourceChannelID is where candidate participants have been chatting.
	SourceChannelID string
	Prompt          string
	CustomID        string
}

// InteractionKind distinguishes button presses from picker selections.
type InteractionKind int

const (
	KindButton InteractionKind = iota
	KindSelect
)

// Interaction is a button press or a picker selection.
type Interaction struct {
	ID       string
	ServerID string
	Kind     InteractionKind
	CustomID string
	Message  contest.MessageRef
	Actor    contest.Participant
	Selected []contest.Participant
}

// Command is a slash command typed in chat.
type Command struct {
	ServerID  string
	ChannelID string
	Actor     contest.Participant
	Name      string
	Args      string
}

// Platform is everything the engine needs from the chat service.
type Platform interface {
	Send(ctx context.Context, channelID string, out Outgoing) (contest.MessageRef, error)
	Edit(ctx context.Context, ref contest.MessageRef, out Outgoing) error
	Pin(ctx context.Context, ref contest.MessageRef) error
	Delete(ctx context.Context, ref contest.MessageRef) error
	SendPicker(ctx context.Context, req PickerRequest) (contest.MessageRef, error)
	// Respond answers an interaction; private replies are only visible to the actor.
	Respond(ctx context.Context, in Interaction, text string, private bool) error
	Subscribe(channelID string) *Subscription

	HasAnyRole(ctx context.Context, serverID, userID string, roles ...string) (bool, error)
	GrantRole(ctx context.Context, serverID, userID, roleID string) error
	RevokeRole(ctx context.Context, serverID, userID, roleID string) error
	Mention(ctx context.Context, serverID, roleID string) (string, error)
}

// Handler receives platform events.
type Handler interface {
	HandleInteraction(ctx context.Context, in Interaction)
	HandleCommand(ctx context.Context, cmd Command)
}
