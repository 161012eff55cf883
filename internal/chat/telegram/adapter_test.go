package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

type fakeBot struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	members  map[int64]string
	reqErr   error
	updates  chan tgbotapi.Update
}

func newFakeBot() *fakeBot {
	return &fakeBot{members: map[int64]string{}, updates: make(chan tgbotapi.Update, 8)}
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.sent = append(b.sent, c)
	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	if b.reqErr != nil {
		return nil, b.reqErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	status, ok := b.members[cfg.UserID]
	if !ok {
		status = "member"
	}
	return tgbotapi.ChatMember{Status: status}, nil
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return b.updates }

func (b *fakeBot) StopReceivingUpdates() {}

func (b *fakeBot) lastSent() tgbotapi.Chattable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[len(b.sent)-1]
}

func (b *fakeBot) lastRequest() tgbotapi.Chattable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

func newTestAdapter(t *testing.T) (*Adapter, *fakeBot, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	bot := newFakeBot()
	a := New(bot, NewRoster(client), zerolog.Nop(), Options{StaffUserIDs: []int64{42}})
	t.Cleanup(a.Close)
	return a, bot, mr
}

func TestAdapter_SendRendersHTMLAndButtons(t *testing.T) {
	a, bot, _ := newTestAdapter(t)

	ref, err := a.Send(context.Background(), "-100200", chat.Outgoing{
		ServerID: "-100100",
		Title:    "Trivia control panel",
		Text:     "Status: running",
		Buttons:  []chat.Button{{ID: "trivia:pause", Label: "Pause"}},
	})
	require.NoError(t, err)
	assert.Equal(t, contest.MessageRef{ChannelID: "-100200", MessageID: "1"}, ref)

	msg, ok := bot.lastSent().(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100200), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Equal(t, "<b>Trivia control panel</b>\nStatus: running", msg.Text)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "trivia:pause|-100100", *markup.InlineKeyboard[0][0].CallbackData)

	_, err = a.Send(context.Background(), "general", chat.Outgoing{Text: "x"})
	assert.Error(t, err)
}

func TestAdapter_EditIgnoresNotModified(t *testing.T) {
	a, bot, _ := newTestAdapter(t)
	ref := contest.MessageRef{ChannelID: "-1", MessageID: "7"}

	require.NoError(t, a.Edit(context.Background(), ref, chat.Outgoing{Text: "final"}))
	edit, ok := bot.lastRequest().(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 7, edit.MessageID)
	assert.Nil(t, edit.ReplyMarkup)

	bot.reqErr = errors.New("Bad Request: message is not modified")
	assert.NoError(t, a.Edit(context.Background(), ref, chat.Outgoing{Text: "final"}))

	bot.reqErr = errors.New("Bad Request: message to edit not found")
	assert.Error(t, a.Edit(context.Background(), ref, chat.Outgoing{Text: "final"}))
}

func TestAdapter_HasAnyRole(t *testing.T) {
	a, bot, _ := newTestAdapter(t)
	ctx := context.Background()
	bot.members[7] = "administrator"

	ok, err := a.HasAnyRole(ctx, "-100", "42", "admin", "staff")
	require.NoError(t, err)
	assert.True(t, ok, "allow-listed staff")

	ok, err = a.HasAnyRole(ctx, "-100", "7", "admin", "staff")
	require.NoError(t, err)
	assert.True(t, ok, "chat administrator")

	ok, err = a.HasAnyRole(ctx, "-100", "9", "admin", "staff")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.GrantRole(ctx, "-100", "9", "fans"))
	ok, err = a.HasAnyRole(ctx, "-100", "9", "fans")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, a.RevokeRole(ctx, "-100", "9", "fans"))
	ok, err = a.HasAnyRole(ctx, "-100", "9", "fans")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_MentionLinksRoster(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	ctx := context.Background()
	a.recent.observe("-100", contest.Participant{ID: "1", DisplayName: "Ann"})
	require.NoError(t, a.GrantRole(ctx, "-100", "1", "fans"))
	require.NoError(t, a.GrantRole(ctx, "-100", "2", "fans"))

	mention, err := a.Mention(ctx, "-100", "fans")
	require.NoError(t, err)
	assert.Equal(t, `<a href="tg://user?id=1">Ann</a> <a href="tg://user?id=2">player</a>`, mention)
}

func TestAdapter_SendPickerUsesRecentAuthors(t *testing.T) {
	a, bot, _ := newTestAdapter(t)
	a.recent.observe("-100", contest.Participant{ID: "1", DisplayName: "Ann"})
	a.recent.observe("-100", contest.Participant{ID: "2", DisplayName: "Bo"})

	_, err := a.SendPicker(context.Background(), chat.PickerRequest{
		ServerID:        "-100",
		ChannelID:       "-200",
		SourceChannelID: "-100",
		Prompt:          "Pick the winner",
		CustomID:        "trivia:pick:abcdefghijkl",
	})
	require.NoError(t, err)

	msg := bot.lastSent().(tgbotapi.MessageConfig)
	markup := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "Bo", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "trivia:pick:abcdefghijkl|-100|2", *markup.InlineKeyboard[0][0].CallbackData)
}

type recordingHandler struct {
	mu           sync.Mutex
	interactions []chat.Interaction
	commands     []chat.Command
}

func (h *recordingHandler) HandleInteraction(_ context.Context, in chat.Interaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.interactions = append(h.interactions, in)
}

func (h *recordingHandler) HandleCommand(_ context.Context, cmd chat.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
}

func TestAdapter_Dispatch(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	h := &recordingHandler{}
	ctx := context.Background()
	sub := a.Subscribe("-100")
	defer sub.Close()

	group := &tgbotapi.Chat{ID: -100}
	ann := &tgbotapi.User{ID: 1, FirstName: "Ann"}

	a.dispatch(ctx, tgbotapi.Update{Message: &tgbotapi.Message{MessageID: 5, From: ann, Chat: group, Text: "paris"}}, h)
	got := <-sub.C()
	assert.Equal(t, "paris", got.Content)
	assert.Equal(t, "1", got.AuthorID)
	assert.Equal(t, "Ann", got.AuthorName)

	a.dispatch(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
		From:     ann,
		Chat:     group,
		Text:     "/trivia_start@quizbot 5 now",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 21}},
	}}, h)
	require.Len(t, h.commands, 1)
	assert.Equal(t, "trivia_start", h.commands[0].Name)
	assert.Equal(t, "5 now", h.commands[0].Args)
	assert.Equal(t, "-100", h.commands[0].ServerID)

	a.dispatch(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 42, FirstName: "Mod"},
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: -200}},
		Data:    "trivia:pick:tok|-100|1",
	}}, h)
	require.Len(t, h.interactions, 1)
	in := h.interactions[0]
	assert.Equal(t, chat.KindSelect, in.Kind)
	assert.Equal(t, "-100", in.ServerID)
	assert.Equal(t, "trivia:pick:tok", in.CustomID)
	assert.Equal(t, []contest.Participant{{ID: "1", DisplayName: "Ann"}}, in.Selected)
	assert.Equal(t, contest.MessageRef{ChannelID: "-200", MessageID: "9"}, in.Message)
}
