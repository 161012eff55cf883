package main

import (
	"os"

	"github.com/gokatarajesh/trivia-bot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
