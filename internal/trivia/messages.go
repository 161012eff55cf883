package trivia

import (
	"fmt"
	"strings"
	"time"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

func questionMessage(number int, q contest.Question, mention string, budget time.Duration) chat.Outgoing {
	hint := fmt.Sprintf("First correct answer within %s wins a point.", humanize(budget))
	if q.ManualReview() {
		hint = "Reply here. Staff will pick the best answer."
	}
	return chat.Outgoing{
		Title:   fmt.Sprintf("Question #%d", number),
		Text:    q.Text + "\n\n" + hint,
		Mention: mention,
	}
}

func winnerMessage(winner contest.Participant, q contest.Question) chat.Outgoing {
	text := fmt.Sprintf("%s got it and earns a point!", displayName(winner))
	if !q.ManualReview() {
		text += "\nAnswer: " + strings.Join(q.AcceptedAnswers, ", ")
	}
	return chat.Outgoing{Title: "We have a winner", Text: text}
}

func timeoutMessage(q contest.Question) chat.Outgoing {
	return chat.Outgoing{
		Title: "Time's up",
		Text:  "Nobody got it this time. Answer: " + strings.Join(q.AcceptedAnswers, ", "),
	}
}

func completionMessage(leaderboard string) chat.Outgoing {
	return chat.Outgoing{
		Title: "Trivia contest finished",
		Text:  "That was the last question. Final standings:\n" + leaderboard,
	}
}

func pickerPrompt(q contest.Question) string {
	return "Pick the winner for: " + q.Text
}

func displayName(p contest.Participant) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}
