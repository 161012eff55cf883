package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// Run long-polls Telegram until ctx is cancelled. Plain messages go to the
// Bus; commands and callback queries go to h.
func (a *Adapter) Run(ctx context.Context, h chat.Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.opts.PollTimeout
	updates := a.api.GetUpdatesChan(u)
	defer a.api.StopReceivingUpdates()

	a.logger.Info().Msg("telegram update loop started")
	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("telegram update loop stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			a.dispatch(ctx, upd, h)
		}
	}
}

func (a *Adapter) dispatch(ctx context.Context, upd tgbotapi.Update, h chat.Handler) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Int("update_id", upd.UpdateID).Msg("update handler panicked")
		}
	}()

	switch {
	case upd.Message != nil:
		a.handleMessage(ctx, upd.Message, h)
	case upd.CallbackQuery != nil:
		a.handleCallback(ctx, upd.CallbackQuery, h)
	}
}

func participant(u *tgbotapi.User) contest.Participant {
	if u == nil {
		return contest.Participant{}
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return contest.Participant{ID: strconv.FormatInt(u.ID, 10), DisplayName: name}
}

func (a *Adapter) handleMessage(ctx context.Context, m *tgbotapi.Message, h chat.Handler) {
	if m.From == nil || m.Chat == nil {
		return
	}
	chatID := strconv.FormatInt(m.Chat.ID, 10)
	author := participant(m.From)

	if m.IsCommand() {
		if m.From.IsBot {
			return
		}
		h.HandleCommand(ctx, chat.Command{
			ServerID:  chatID,
			ChannelID: chatID,
			Actor:     author,
			Name:      m.Command(),
			Args:      strings.TrimSpace(m.CommandArguments()),
		})
		return
	}
	if m.Text == "" {
		return
	}

	if !m.From.IsBot {
		a.recent.observe(chatID, author)
	}
	a.Publish(chat.Message{
		ID:         strconv.Itoa(m.MessageID),
		ServerID:   chatID,
		ChannelID:  chatID,
		AuthorID:   author.ID,
		AuthorName: author.DisplayName,
		FromBot:    m.From.IsBot,
		Content:    m.Text,
		SentAt:     m.Time(),
	})
}

func (a *Adapter) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery, h chat.Handler) {
	data, ok := parseCallback(q.Data)
	if !ok {
		a.logger.Debug().Str("data", q.Data).Msg("ignoring foreign callback")
		if _, err := a.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			a.logger.Warn().Err(err).Msg("answer callback failed")
		}
		return
	}

	in := chat.Interaction{
		ID:       q.ID,
		ServerID: data.ServerID,
		Kind:     chat.KindButton,
		CustomID: data.CustomID,
		Actor:    participant(q.From),
	}
	if q.Message != nil && q.Message.Chat != nil {
		in.Message = contest.MessageRef{
			ChannelID: strconv.FormatInt(q.Message.Chat.ID, 10),
			MessageID: strconv.Itoa(q.Message.MessageID),
		}
	}
	if data.UserID != "" {
		in.Kind = chat.KindSelect
		in.Selected = []contest.Participant{{ID: data.UserID, DisplayName: a.recent.name(data.UserID)}}
	}
	h.HandleInteraction(ctx, in)
}
