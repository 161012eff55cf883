package trivia

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

// Chat command names (without the leading slash).
const (
	CommandStart       = "trivia_start"
	CommandPause       = "trivia_pause"
	CommandResume      = "trivia_resume"
	CommandLeaderboard = "trivia_leaderboard"
	CommandAdd         = "trivia_add"
	CommandFetch       = "trivia_fetch"
)

// HandleCommand runs a staff chat command and replies in the same channel.
func (s *Service) HandleCommand(ctx context.Context, cmd chat.Command) {
	var (
		reply string
		err   error
	)
	switch cmd.Name {
	case CommandLeaderboard:
		reply, err = s.board.RenderText(ctx, cmd.ServerID)
	case CommandStart, CommandPause, CommandResume, CommandAdd, CommandFetch:
		if err = s.authorize(ctx, cmd.ServerID, cmd.Actor.ID); err == nil {
			reply, err = s.runStaffCommand(ctx, cmd)
		}
	default:
		return
	}

	if err != nil {
		if !errors.Is(err, contest.ErrUnauthorized) {
			s.logger.Warn().Err(err).Str("server_id", cmd.ServerID).Str("command", cmd.Name).Msg("command failed")
		}
		reply = contest.UserMessage(err)
	}
	if _, sendErr := s.platform.Send(ctx, cmd.ChannelID, chat.Outgoing{Text: reply}); sendErr != nil {
		s.logger.Warn().Err(sendErr).Str("server_id", cmd.ServerID).Msg("command reply failed")
	}
}

func (s *Service) runStaffCommand(ctx context.Context, cmd chat.Command) (string, error) {
	switch cmd.Name {
	case CommandStart:
		req, err := parseStart(cmd)
		if err != nil {
			return "", err
		}
		state, err := s.StartContest(ctx, req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Trivia started: one question every %s.", humanize(s.interval(state))), nil
	case CommandPause:
		if _, err := s.SetPaused(ctx, cmd.ServerID, cmd.Actor.ID, true); err != nil {
			return "", err
		}
		return "Contest paused.", nil
	case CommandResume:
		if _, err := s.SetPaused(ctx, cmd.ServerID, cmd.Actor.ID, false); err != nil {
			return "", err
		}
		return "Contest resumed.", nil
	case CommandAdd:
		text, answers, requireAll := parseAdd(cmd.Args)
		q, err := s.AddQuestion(ctx, cmd.ServerID, text, answers, requireAll)
		if err != nil {
			return "", err
		}
		if q.ManualReview() {
			return "Question added. Staff will pick its winner.", nil
		}
		return fmt.Sprintf("Question added with %d accepted answer(s).", len(q.AcceptedAnswers)), nil
	case CommandFetch:
		amount, difficulty := parseFetch(cmd.Args)
		res, err := s.questions.FetchOpenTDB(ctx, cmd.ServerID, amount, difficulty)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Imported %d question(s) from Open Trivia DB.", res.Added), nil
	}
	return "", nil
}

// parseStart reads "<minutes> [now] [staff_channel_id]".
func parseStart(cmd chat.Command) (StartRequest, error) {
	fields := strings.Fields(cmd.Args)
	if len(fields) == 0 {
		return StartRequest{}, contest.ErrInvalidInterval
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil || minutes <= 0 {
		return StartRequest{}, contest.ErrInvalidInterval
	}
	req := StartRequest{
		ServerID:        cmd.ServerID,
		PublicChannelID: cmd.ChannelID,
		IntervalMinutes: minutes,
		ActorID:         cmd.Actor.ID,
	}
	for _, f := range fields[1:] {
		if strings.EqualFold(f, "now") {
			req.StartNow = true
			continue
		}
		req.StaffChannelID = f
	}
	return req, nil
}

// parseAdd reads "<question> | <answer;answer> | all".
func parseAdd(args string) (text string, answers []string, requireAll bool) {
	parts := strings.Split(args, "|")
	text = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		for _, a := range strings.Split(parts[1], ";") {
			if a = strings.TrimSpace(a); a != "" {
				answers = append(answers, a)
			}
		}
	}
	if len(parts) > 2 {
		requireAll = strings.EqualFold(strings.TrimSpace(parts[2]), "all")
	}
	return text, answers, requireAll
}

// parseFetch reads "[amount] [difficulty]"; amount defaults to 10.
func parseFetch(args string) (amount int, difficulty string) {
	amount = 10
	for _, f := range strings.Fields(args) {
		if n, err := strconv.Atoi(f); err == nil {
			amount = n
			continue
		}
		difficulty = strings.ToLower(f)
	}
	return amount, difficulty
}
