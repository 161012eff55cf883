package telegram

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
)

var textPolicy = bluemonday.StrictPolicy()

// renderHTML builds a message body for parse mode HTML. Title and text come
// from contest data and chat users, so any markup in them is stripped. The
// mention is produced by the adapter itself and kept as is.
func renderHTML(out chat.Outgoing) string {
	var b strings.Builder
	if out.Mention != "" {
		b.WriteString(out.Mention)
		b.WriteString("\n")
	}
	if out.Title != "" {
		b.WriteString("<b>")
		b.WriteString(textPolicy.Sanitize(out.Title))
		b.WriteString("</b>\n")
	}
	b.WriteString(textPolicy.Sanitize(out.Text))
	return strings.TrimRight(b.String(), "\n")
}

func mentionLink(userID, name string) string {
	if name == "" {
		name = "player"
	}
	return `<a href="tg://user?id=` + userID + `">` + textPolicy.Sanitize(name) + `</a>`
}
