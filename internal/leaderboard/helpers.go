package leaderboard

import (
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	ws "github.com/gokatarajesh/trivia-bot/pkg/http/ws"
)

func toWSEntries(entries []contest.LeaderboardEntry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:          i + 1,
			ParticipantID: e.ParticipantID,
			DisplayName:   e.DisplayName,
			Score:         e.Score,
			Answered:      len(e.AnsweredQuestionIDs),
		}
	}
	return result
}
