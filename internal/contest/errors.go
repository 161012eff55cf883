package contest

import "errors"

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrContestActive rejects a start while a contest is already running.
	ErrContestActive = errors.New("a trivia contest is already running")
	// ErrNoContest is returned for control actions on servers without a contest.
	ErrNoContest = errors.New("no trivia contest for this server")
	// ErrInvalidInterval rejects non-positive intervals.
	ErrInvalidInterval = errors.New("interval must be a positive number of minutes")
	// ErrInvalidQuestion rejects questions without text.
	ErrInvalidQuestion = errors.New("question text is required")
	// ErrUnauthorized is returned when the actor lacks the admin or staff role.
	ErrUnauthorized = errors.New("only trivia staff can do that")
	// ErrExhausted signals that every question in the bank has been asked.
	ErrExhausted = errors.New("question bank exhausted")
)

// UserMessage maps an error to the terse text shown in chat.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContestActive),
		errors.Is(err, ErrNoContest),
		errors.Is(err, ErrInvalidInterval),
		errors.Is(err, ErrInvalidQuestion),
		errors.Is(err, ErrUnauthorized):
		return unwrapSentinel(err).Error()
	default:
		return "Something went wrong, please try again."
	}
}

func unwrapSentinel(err error) error {
	for _, target := range []error{ErrContestActive, ErrNoContest, ErrInvalidInterval, ErrInvalidQuestion, ErrUnauthorized} {
		if errors.Is(err, target) {
			return target
		}
	}
	return err
}
