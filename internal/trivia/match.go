package trivia

import (
	"strconv"
	"strings"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// matchAnswer grades a chat message against a question's accepted answers.
//
// When the first accepted answer is numeric the trimmed message must equal one
// of the answers exactly, so "77" never matches "7". Otherwise the lowercased
// message must contain any accepted answer, or all of them when the question
// requires every answer.
func matchAnswer(content string, q contest.Question) bool {
	if len(q.AcceptedAnswers) == 0 {
		return false
	}

	if isNumeric(q.AcceptedAnswers[0]) {
		trimmed := strings.TrimSpace(content)
		for _, a := range q.AcceptedAnswers {
			if trimmed == strings.TrimSpace(a) {
				return true
			}
		}
		return false
	}

	lower := strings.ToLower(content)
	for _, a := range q.AcceptedAnswers {
		found := strings.Contains(lower, strings.ToLower(strings.TrimSpace(a)))
		if found && !q.RequireAllAnswers {
			return true
		}
		if !found && q.RequireAllAnswers {
			return false
		}
	}
	return q.RequireAllAnswers
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
