package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// BotAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Options configures the Telegram adapter.
type Options struct {
	// AdminRole maps to Telegram chat administrators.
	AdminRole string
	// StaffRole maps to the StaffUserIDs allow list.
	StaffRole    string
	StaffUserIDs []int64
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
	// PickerSize caps the candidates offered to staff.
	PickerSize int
	// MentionLimit caps how many roster members a question pings.
	MentionLimit int
}

// Adapter implements chat.Platform on top of the Telegram Bot API. Chat ids
// are used as both server and channel ids.
type Adapter struct {
	*chat.Bus

	api    BotAPI
	roster *Roster
	recent *recentAuthors
	opts   Options
	logger zerolog.Logger
}

var _ chat.Platform = (*Adapter)(nil)

// New creates the adapter. roster may be nil, in which case opt-in roles are unavailable.
func New(api BotAPI, roster *Roster, logger zerolog.Logger, opts Options) *Adapter {
	if opts.AdminRole == "" {
		opts.AdminRole = "admin"
	}
	if opts.StaffRole == "" {
		opts.StaffRole = "staff"
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60
	}
	if opts.PickerSize <= 0 {
		opts.PickerSize = 8
	}
	if opts.MentionLimit <= 0 {
		opts.MentionLimit = 20
	}
	return &Adapter{
		Bus:    chat.NewBus(0),
		api:    api,
		roster: roster,
		recent: newRecentAuthors(opts.PickerSize),
		opts:   opts,
		logger: logger.With().Str("component", "telegram").Logger(),
	}
}

func parseChatID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", id, err)
	}
	return n, nil
}

func parseRef(ref contest.MessageRef) (int64, int, error) {
	chatID, err := parseChatID(ref.ChannelID)
	if err != nil {
		return 0, 0, err
	}
	msgID, err := strconv.Atoi(ref.MessageID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram message id %q: %w", ref.MessageID, err)
	}
	return chatID, msgID, nil
}

func (a *Adapter) keyboard(serverID string, buttons []chat.Button) (*tgbotapi.InlineKeyboardMarkup, error) {
	if len(buttons) == 0 {
		return nil, nil
	}
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		data, err := callbackData{CustomID: b.ID, ServerID: serverID}.encode()
		if err != nil {
			return nil, err
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, data))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup, nil
}

func (a *Adapter) Send(_ context.Context, channelID string, out chat.Outgoing) (contest.MessageRef, error) {
	chatID, err := parseChatID(channelID)
	if err != nil {
		return contest.MessageRef{}, err
	}
	serverID := out.ServerID
	if serverID == "" {
		serverID = channelID
	}

	msg := tgbotapi.NewMessage(chatID, renderHTML(out))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	markup, err := a.keyboard(serverID, out.Buttons)
	if err != nil {
		return contest.MessageRef{}, err
	}
	if markup != nil {
		msg.ReplyMarkup = *markup
	}

	sent, err := a.api.Send(msg)
	if err != nil {
		return contest.MessageRef{}, fmt.Errorf("telegram send: %w", err)
	}
	return contest.MessageRef{ChannelID: channelID, MessageID: strconv.Itoa(sent.MessageID)}, nil
}

func (a *Adapter) Edit(_ context.Context, ref contest.MessageRef, out chat.Outgoing) error {
	chatID, msgID, err := parseRef(ref)
	if err != nil {
		return err
	}
	serverID := out.ServerID
	if serverID == "" {
		serverID = ref.ChannelID
	}

	// Without a markup Telegram drops the existing keyboard.
	edit := tgbotapi.NewEditMessageText(chatID, msgID, renderHTML(out))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	markup, err := a.keyboard(serverID, out.Buttons)
	if err != nil {
		return err
	}
	edit.ReplyMarkup = markup

	if _, err := a.api.Request(edit); err != nil && !isNotModified(err) {
		return fmt.Errorf("telegram edit: %w", err)
	}
	return nil
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func (a *Adapter) Pin(_ context.Context, ref contest.MessageRef) error {
	chatID, msgID, err := parseRef(ref)
	if err != nil {
		return err
	}
	_, err = a.api.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           msgID,
		DisableNotification: true,
	})
	if err != nil {
		return fmt.Errorf("telegram pin: %w", err)
	}
	return nil
}

func (a *Adapter) Delete(_ context.Context, ref contest.MessageRef) error {
	chatID, msgID, err := parseRef(ref)
	if err != nil {
		return err
	}
	if _, err := a.api.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		return fmt.Errorf("telegram delete: %w", err)
	}
	return nil
}

// SendPicker renders the most recent authors of the source chat as buttons,
// one per row.
func (a *Adapter) SendPicker(_ context.Context, req chat.PickerRequest) (contest.MessageRef, error) {
	chatID, err := parseChatID(req.ChannelID)
	if err != nil {
		return contest.MessageRef{}, err
	}
	candidates := a.recent.list(req.SourceChannelID)

	text := textPolicy.Sanitize(req.Prompt)
	if len(candidates) == 0 {
		text += "\n\nNobody has posted in the contest chat yet."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range candidates {
		data, err := callbackData{CustomID: req.CustomID, ServerID: req.ServerID, UserID: p.ID}.encode()
		if err != nil {
			a.logger.Warn().Err(err).Str("user_id", p.ID).Msg("skipping picker candidate")
			continue
		}
		label := p.DisplayName
		if label == "" {
			label = p.ID
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	sent, err := a.api.Send(msg)
	if err != nil {
		return contest.MessageRef{}, fmt.Errorf("telegram send picker: %w", err)
	}
	return contest.MessageRef{ChannelID: req.ChannelID, MessageID: strconv.Itoa(sent.MessageID)}, nil
}

// Respond answers the callback query. Callback answers are only shown to the
// actor; public replies are also posted to the chat.
func (a *Adapter) Respond(ctx context.Context, in chat.Interaction, text string, private bool) error {
	if in.ID != "" {
		if _, err := a.api.Request(tgbotapi.NewCallback(in.ID, text)); err != nil {
			return fmt.Errorf("telegram answer callback: %w", err)
		}
	}
	if private || in.Message.ChannelID == "" {
		return nil
	}
	_, err := a.Send(ctx, in.Message.ChannelID, chat.Outgoing{ServerID: in.ServerID, Text: text})
	return err
}

// HasAnyRole maps the admin role to chat administrators, the staff role to
// the configured allow list and anything else to the Redis roster.
func (a *Adapter) HasAnyRole(ctx context.Context, serverID, userID string, roles ...string) (bool, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false, nil
	}
	for _, role := range roles {
		switch role {
		case a.opts.StaffRole:
			if slices.Contains(a.opts.StaffUserIDs, uid) {
				return true, nil
			}
		case a.opts.AdminRole:
			ok, err := a.isChatAdmin(serverID, uid)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		default:
			if a.roster == nil {
				continue
			}
			ok, err := a.roster.Has(ctx, serverID, role, userID)
			if err != nil {
				return false, fmt.Errorf("roster lookup: %w", err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}

func (a *Adapter) isChatAdmin(serverID string, userID int64) (bool, error) {
	chatID, err := parseChatID(serverID)
	if err != nil {
		return false, err
	}
	member, err := a.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("telegram get chat member: %w", err)
	}
	return member.IsCreator() || member.IsAdministrator(), nil
}

var errNoRoster = errors.New("opt-in roles need redis")

func (a *Adapter) GrantRole(ctx context.Context, serverID, userID, roleID string) error {
	if a.roster == nil {
		return errNoRoster
	}
	return a.roster.Grant(ctx, serverID, roleID, userID)
}

func (a *Adapter) RevokeRole(ctx context.Context, serverID, userID, roleID string) error {
	if a.roster == nil {
		return errNoRoster
	}
	return a.roster.Revoke(ctx, serverID, roleID, userID)
}

// Mention links every roster member so Telegram notifies them.
func (a *Adapter) Mention(ctx context.Context, serverID, roleID string) (string, error) {
	if a.roster == nil {
		return "", nil
	}
	members, err := a.roster.Members(ctx, serverID, roleID)
	if err != nil {
		return "", fmt.Errorf("roster members: %w", err)
	}
	if len(members) > a.opts.MentionLimit {
		members = members[:a.opts.MentionLimit]
	}
	links := make([]string, 0, len(members))
	for _, id := range members {
		links = append(links, mentionLink(id, a.recent.name(id)))
	}
	return strings.Join(links, " "), nil
}
