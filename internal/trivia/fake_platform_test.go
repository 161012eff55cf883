package trivia

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/leaderboard"
	"github.com/gokatarajesh/trivia-bot/internal/question"
	"github.com/gokatarajesh/trivia-bot/internal/store/memory"
)

type sentMessage struct {
	ChannelID string
	Out       chat.Outgoing
	Ref       contest.MessageRef
}

type response struct {
	Actor   string
	Text    string
	Private bool
}

// fakePlatform records every outgoing call and delivers chat messages through a real Bus.
type fakePlatform struct {
	*chat.Bus

	mu        sync.Mutex
	seq       int
	sent      []sentMessage
	edits     map[contest.MessageRef]chat.Outgoing
	pinned    []contest.MessageRef
	deleted   []contest.MessageRef
	pickers   []chat.PickerRequest
	responses []response
	roles     map[string]map[string]bool
	sendErr   error
	// onSend runs after a message is recorded, outside the lock.
	onSend func(channelID string, out chat.Outgoing)
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		Bus:   chat.NewBus(0),
		edits: make(map[contest.MessageRef]chat.Outgoing),
		roles: make(map[string]map[string]bool),
	}
}

func (p *fakePlatform) nextRef(channelID string) contest.MessageRef {
	p.seq++
	return contest.MessageRef{ChannelID: channelID, MessageID: strconv.Itoa(p.seq)}
}

func (p *fakePlatform) Send(_ context.Context, channelID string, out chat.Outgoing) (contest.MessageRef, error) {
	p.mu.Lock()
	if p.sendErr != nil {
		err := p.sendErr
		p.mu.Unlock()
		return contest.MessageRef{}, err
	}
	ref := p.nextRef(channelID)
	p.sent = append(p.sent, sentMessage{ChannelID: channelID, Out: out, Ref: ref})
	hook := p.onSend
	p.mu.Unlock()

	if hook != nil {
		hook(channelID, out)
	}
	return ref, nil
}

func (p *fakePlatform) Edit(_ context.Context, ref contest.MessageRef, out chat.Outgoing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits[ref] = out
	return nil
}

func (p *fakePlatform) Pin(_ context.Context, ref contest.MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pinned = append(p.pinned, ref)
	return nil
}

func (p *fakePlatform) Delete(_ context.Context, ref contest.MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, ref)
	return nil
}

func (p *fakePlatform) SendPicker(_ context.Context, req chat.PickerRequest) (contest.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pickers = append(p.pickers, req)
	return p.nextRef(req.ChannelID), nil
}

func (p *fakePlatform) Respond(_ context.Context, in chat.Interaction, text string, private bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, response{Actor: in.Actor.ID, Text: text, Private: private})
	return nil
}

func (p *fakePlatform) HasAnyRole(_ context.Context, _, userID string, roles ...string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range roles {
		if p.roles[userID][r] {
			return true, nil
		}
	}
	return false, nil
}

func (p *fakePlatform) GrantRole(_ context.Context, _, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.roles[userID] == nil {
		p.roles[userID] = make(map[string]bool)
	}
	p.roles[userID][roleID] = true
	return nil
}

func (p *fakePlatform) RevokeRole(_ context.Context, _, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.roles[userID], roleID)
	return nil
}

func (p *fakePlatform) Mention(_ context.Context, _, roleID string) (string, error) {
	return "@" + roleID, nil
}

func (p *fakePlatform) sentTo(channelID string) []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sentMessage
	for _, m := range p.sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (p *fakePlatform) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func (p *fakePlatform) lastEdit(ref contest.MessageRef) (chat.Outgoing, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, ok := p.edits[ref]
	return out, ok
}

func (p *fakePlatform) lastResponse() response {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return response{}
	}
	return p.responses[len(p.responses)-1]
}

func (p *fakePlatform) pickerRequests() []chat.PickerRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]chat.PickerRequest(nil), p.pickers...)
}

type harness struct {
	svc      *Service
	platform *fakePlatform
	store    *memory.Store
	board    *leaderboard.Service
}

func newHarness(t *testing.T, opts ServiceOptions, locker Locker) *harness {
	t.Helper()
	store := memory.NewStore()
	platform := newFakePlatform()
	board := leaderboard.NewService(store, nil, zerolog.Nop(), leaderboard.ServiceOptions{})
	questions := question.NewService(store, zerolog.Nop(), question.ServiceOptions{})
	if opts.IntervalUnit == 0 {
		// Scheduled ticks never fire during a test unless asked for.
		opts.IntervalUnit = time.Hour
	}
	svc := NewService(store, questions, board, platform, locker, zerolog.Nop(), opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
		platform.Close()
	})
	_ = platform.GrantRole(context.Background(), "srv", "mod", "staff")
	return &harness{svc: svc, platform: platform, store: store, board: board}
}

// activeState seeds a running contest without a scheduler so tests drive ticks by hand.
func (h *harness) activeState(t *testing.T, interval int) contest.State {
	t.Helper()
	state := contest.State{
		ServerID:            "srv",
		IntervalMinutes:     interval,
		Active:              true,
		PublicChannelID:     "public",
		StaffChannelID:      "staff",
		InfoMessage:         contest.MessageRef{ChannelID: "public", MessageID: "info"},
		ControlPanelMessage: contest.MessageRef{ChannelID: "staff", MessageID: "panel"},
		StartedAt:           time.Now(),
	}
	if err := h.store.SaveContest(context.Background(), state); err != nil {
		t.Fatalf("save contest: %v", err)
	}
	return state
}

func (h *harness) asked(t *testing.T) []string {
	t.Helper()
	state, err := h.store.GetContest(context.Background(), "srv")
	if err != nil {
		t.Fatalf("get contest: %v", err)
	}
	return state.AskedQuestionIDs
}
