package export

import (
	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/leaderboard"
)

var header = []interface{}{"Rank", "Participant ID", "Display name", "Score", "Questions won"}

// Rows turns standings into a header row plus one row per participant, best first.
func Rows(entries []contest.LeaderboardEntry) [][]interface{} {
	sorted := append([]contest.LeaderboardEntry(nil), entries...)
	leaderboard.Sort(sorted)

	rows := make([][]interface{}, 0, len(sorted)+1)
	rows = append(rows, header)
	for i, e := range sorted {
		rows = append(rows, []interface{}{i + 1, e.ParticipantID, e.DisplayName, e.Score, len(e.AnsweredQuestionIDs)})
	}
	return rows
}

// SheetName is the tab used for a server's standings.
func SheetName(serverID string) string {
	return "server " + serverID
}
