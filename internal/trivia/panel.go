package trivia

import (
	"fmt"
	"strings"
	"time"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// Interaction custom ids. Picker ids carry a review token after the prefix.
const (
	ActionPause   = "trivia:pause"
	ActionResume  = "trivia:resume"
	ActionRefresh = "trivia:refresh"
	ActionNotify  = "trivia:notify"
	PickPrefix    = "trivia:pick:"
)

type contestStatus string

const (
	statusRunning  contestStatus = "running"
	statusPaused   contestStatus = "paused"
	statusFinished contestStatus = "finished"
)

func statusOf(state contest.State) contestStatus {
	switch {
	case !state.Active:
		return statusFinished
	case state.Paused:
		return statusPaused
	default:
		return statusRunning
	}
}

// renderPanel projects the contest state into the staff control panel.
func renderPanel(state contest.State) chat.Outgoing {
	status := statusOf(state)
	text := fmt.Sprintf("Interval: %s\nStatus: %s\nQuestions asked: %d",
		humanize(state.Interval()), status, len(state.AskedQuestionIDs))

	out := chat.Outgoing{ServerID: state.ServerID, Title: "Trivia control panel", Text: text}
	switch status {
	case statusRunning:
		out.Buttons = []chat.Button{{ID: ActionPause, Label: "Pause"}, {ID: ActionRefresh, Label: "Refresh leaderboard"}}
	case statusPaused:
		out.Buttons = []chat.Button{{ID: ActionResume, Label: "Resume"}, {ID: ActionRefresh, Label: "Refresh leaderboard"}}
	}
	return out
}

// renderInfo is the pinned public message: schedule plus leaderboard.
func renderInfo(state contest.State, leaderboard string) chat.Outgoing {
	var b strings.Builder
	if state.Active {
		fmt.Fprintf(&b, "A new question drops every %s. The first correct answer wins a point.", humanize(state.Interval()))
	} else {
		b.WriteString("The contest is over. Thanks for playing!")
	}
	b.WriteString("\n\nLeaderboard\n")
	b.WriteString(leaderboard)

	out := chat.Outgoing{ServerID: state.ServerID, Title: "Trivia contest", Text: b.String()}
	if state.Active && state.NotifyRoleID != "" {
		out.Buttons = []chat.Button{{ID: ActionNotify, Label: "Notify me"}}
	}
	return out
}

// humanize renders whole minutes as "N minutes" and anything shorter in seconds.
func humanize(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		if n := int(d / time.Minute); n != 1 {
			return fmt.Sprintf("%d minutes", n)
		}
		return "1 minute"
	case d >= time.Minute:
		return fmt.Sprintf("%dm%02ds", int(d/time.Minute), int((d%time.Minute)/time.Second))
	default:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
}
