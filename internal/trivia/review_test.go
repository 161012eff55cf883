package trivia

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

func pickFor(picker chat.PickerRequest, winner contest.Participant) chat.Interaction {
	return chat.Interaction{
		ServerID: "srv",
		Kind:     chat.KindSelect,
		CustomID: picker.CustomID,
		Actor:    contest.Participant{ID: "mod"},
		Selected: []contest.Participant{winner},
	}
}

func TestNewContestDiscardsOpenReviews(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ServiceOptions{}, nil)
	_, err := h.svc.AddQuestion(ctx, "srv", "Best pun?", nil, false)
	require.NoError(t, err)

	req := StartRequest{ServerID: "srv", PublicChannelID: "public", StaffChannelID: "staff", IntervalMinutes: 60, ActorID: "mod"}
	_, err = h.svc.StartContest(ctx, req)
	require.NoError(t, err)
	require.Equal(t, TickContinuing, h.svc.Tick(ctx, "srv"))
	picker := h.platform.pickerRequests()[0]
	require.Equal(t, TickExhausted, h.svc.Tick(ctx, "srv"))

	// The finished contest leaves the registry at once, so a restart is accepted.
	assert.False(t, h.svc.Running("srv"))
	_, err = h.svc.StartContest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, h.svc.desk.Pending())
	assert.Len(t, h.platform.deleted, 1, "stale staff prompt removed")

	h.svc.HandleInteraction(ctx, pickFor(picker, contest.Participant{ID: "u1", DisplayName: "una"}))
	assert.Equal(t, "This question was already resolved.", h.platform.lastResponse().Text)

	entries, err := h.board.Standings(ctx, "srv")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPickForEarlierContestIsRefused(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ServiceOptions{}, nil)
	state := h.activeState(t, 1)
	_, err := h.svc.AddQuestion(ctx, "srv", "Best pun?", nil, false)
	require.NoError(t, err)
	require.Equal(t, TickContinuing, h.svc.Tick(ctx, "srv"))
	picker := h.platform.pickerRequests()[0]

	// Another contest replaced the stored one while the picker was open.
	state.StartedAt = state.StartedAt.Add(time.Hour)
	state.AskedQuestionIDs = nil
	require.NoError(t, h.store.SaveContest(ctx, state))
	before := len(h.platform.sentTo("public"))

	h.svc.HandleInteraction(ctx, pickFor(picker, contest.Participant{ID: "u1", DisplayName: "una"}))
	assert.Equal(t, "This question belongs to an earlier contest.", h.platform.lastResponse().Text)
	assert.Len(t, h.platform.sentTo("public"), before, "no winner announced")
	assert.Equal(t, 0, h.svc.desk.Pending())

	entries, err := h.board.Standings(ctx, "srv")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLatePickKeepsFinishedInfoMessage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ServiceOptions{}, nil)
	state := h.activeState(t, 60)
	state.NotifyRoleID = "trivia"
	require.NoError(t, h.store.SaveContest(ctx, state))
	_, err := h.svc.AddQuestion(ctx, "srv", "Best pun?", nil, false)
	require.NoError(t, err)

	require.Equal(t, TickContinuing, h.svc.Tick(ctx, "srv"))
	picker := h.platform.pickerRequests()[0]
	require.Equal(t, TickExhausted, h.svc.Tick(ctx, "srv"))

	h.svc.HandleInteraction(ctx, pickFor(picker, contest.Participant{ID: "u1", DisplayName: "una"}))
	assert.Equal(t, "Point awarded to una.", h.platform.lastResponse().Text)

	info, ok := h.platform.lastEdit(state.InfoMessage)
	require.True(t, ok)
	assert.Contains(t, info.Text, "The contest is over.")
	assert.Contains(t, info.Text, "1. una: 1 point")
	assert.Empty(t, info.Buttons)
}

func TestStartContestKeepsLeaderboardWhenAnnouncementFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ServiceOptions{}, nil)
	require.NoError(t, h.store.SaveContest(ctx, contest.State{ServerID: "srv", IntervalMinutes: 1}))
	require.NoError(t, h.board.AwardPoint(ctx, "srv", contest.Participant{ID: "old"}, "q-old", 1))

	h.platform.mu.Lock()
	h.platform.sendErr = errors.New("chat unavailable")
	h.platform.mu.Unlock()

	_, err := h.svc.StartContest(ctx, StartRequest{ServerID: "srv", PublicChannelID: "public", IntervalMinutes: 2})
	require.Error(t, err)
	assert.False(t, h.svc.Running("srv"))

	entries, err := h.board.Standings(ctx, "srv")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].ParticipantID)
}
