package question

import "github.com/gokatarajesh/trivia-bot/internal/contest"

// Difficulty constants accepted by the Open Trivia DB source.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// File is the YAML layout of an importable question bank.
//
//	questions:
//	  - text: "What is 6 x 7?"
//	    answers: ["42"]
//	  - text: "Post your best meme"
type File struct {
	Questions []contest.Question `yaml:"questions"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Added   int
	Skipped int
}
