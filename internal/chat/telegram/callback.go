package telegram

import (
	"errors"
	"strings"
)

// Telegram caps callback data at 64 bytes.
const maxCallbackData = 64

var errCallbackTooLong = errors.New("callback data exceeds 64 bytes")

// callbackData is what the adapter packs into an inline button.
type callbackData struct {
	CustomID string
	ServerID string
	// UserID is set on picker buttons: the participant the button selects.
	UserID string
}

func (c callbackData) encode() (string, error) {
	s := c.CustomID + "|" + c.ServerID
	if c.UserID != "" {
		s += "|" + c.UserID
	}
	if len(s) > maxCallbackData {
		return "", errCallbackTooLong
	}
	return s, nil
}

func parseCallback(data string) (callbackData, bool) {
	parts := strings.Split(data, "|")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return callbackData{}, false
	}
	c := callbackData{CustomID: parts[0], ServerID: parts[1]}
	if len(parts) == 3 {
		c.UserID = parts[2]
	}
	return c, true
}
