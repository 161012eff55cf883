package telegram

import (
	"sync"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// recentAuthors remembers who spoke last in each chat, newest first. It feeds
// the staff picker, since Telegram has no native member selector.
type recentAuthors struct {
	mu    sync.Mutex
	limit int
	chats map[string][]contest.Participant
	names map[string]string
}

func newRecentAuthors(limit int) *recentAuthors {
	return &recentAuthors{
		limit: limit,
		chats: make(map[string][]contest.Participant),
		names: make(map[string]string),
	}
}

func (r *recentAuthors) observe(channelID string, p contest.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.DisplayName != "" {
		r.names[p.ID] = p.DisplayName
	}
	list := r.chats[channelID]
	for i, existing := range list {
		if existing.ID == p.ID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append([]contest.Participant{p}, list...)
	if len(list) > r.limit {
		list = list[:r.limit]
	}
	r.chats[channelID] = list
}

func (r *recentAuthors) list(channelID string) []contest.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contest.Participant(nil), r.chats[channelID]...)
}

func (r *recentAuthors) name(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names[userID]
}
