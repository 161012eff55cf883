package trivia

import (
	"context"
	"time"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
)

// CollectorState is the lifecycle of one automatic answer window.
type CollectorState int

const (
	CollectorListening CollectorState = iota
	CollectorResolved
	CollectorTimedOut
	CollectorFailed
)

func (s CollectorState) String() string {
	switch s {
	case CollectorListening:
		return "listening"
	case CollectorResolved:
		return "resolved"
	case CollectorTimedOut:
		return "timed_out"
	case CollectorFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the single completion of a collector.
type Outcome struct {
	State CollectorState
	// Winner is the first matching message; set only when State is CollectorResolved.
	Winner *chat.Message
}

// collector listens on a channel subscription until a message satisfies the
// predicate, the budget runs out, or the feed is lost. It closes the
// subscription before reporting, so no message is observed after completion.
type collector struct {
	sub   *chat.Subscription
	match func(chat.Message) bool
	state CollectorState
}

func newCollector(sub *chat.Subscription, match func(chat.Message) bool) *collector {
	return &collector{sub: sub, match: match, state: CollectorListening}
}

// Run blocks for at most budget. It must be called once.
func (c *collector) Run(ctx context.Context, budget time.Duration) Outcome {
	if c.state != CollectorListening {
		return Outcome{State: c.state}
	}

	timer := time.NewTimer(budget)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.complete(CollectorFailed, nil)
		case <-timer.C:
			return c.complete(CollectorTimedOut, nil)
		case msg, ok := <-c.sub.C():
			if !ok {
				return c.complete(CollectorFailed, nil)
			}
			if msg.FromBot || !c.match(msg) {
				continue
			}
			return c.complete(CollectorResolved, &msg)
		}
	}
}

func (c *collector) complete(state CollectorState, winner *chat.Message) Outcome {
	c.sub.Close()
	c.state = state
	return Outcome{State: state, Winner: winner}
}
