package trivia

import (
	"context"
	"errors"
	"strings"

	"github.com/gokatarajesh/trivia-bot/internal/chat"
	"github.com/gokatarajesh/trivia-bot/internal/contest"
)

var _ chat.Handler = (*Service)(nil)

// HandleInteraction routes button presses and picker selections.
func (s *Service) HandleInteraction(ctx context.Context, in chat.Interaction) {
	switch {
	case strings.HasPrefix(in.CustomID, PickPrefix):
		s.desk.pick(ctx, in)
	case in.CustomID == ActionPause, in.CustomID == ActionResume:
		s.handlePauseButton(ctx, in, in.CustomID == ActionPause)
	case in.CustomID == ActionRefresh:
		s.handleRefreshButton(ctx, in)
	case in.CustomID == ActionNotify:
		s.handleNotifyToggle(ctx, in)
	default:
		s.logger.Debug().Str("custom_id", in.CustomID).Msg("ignoring unknown interaction")
	}
}

func (s *Service) handlePauseButton(ctx context.Context, in chat.Interaction, paused bool) {
	if err := s.authorize(ctx, in.ServerID, in.Actor.ID); err != nil {
		s.respondErr(ctx, in, err)
		return
	}
	if _, err := s.SetPaused(ctx, in.ServerID, in.Actor.ID, paused); err != nil {
		s.respondErr(ctx, in, err)
		return
	}
	if paused {
		s.respond(ctx, in, "Contest paused.", true)
	} else {
		s.respond(ctx, in, "Contest resumed.", true)
	}
}

func (s *Service) handleRefreshButton(ctx context.Context, in chat.Interaction) {
	if err := s.authorize(ctx, in.ServerID, in.Actor.ID); err != nil {
		s.respondErr(ctx, in, err)
		return
	}
	if err := s.RefreshLeaderboard(ctx, in.ServerID); err != nil {
		s.respondErr(ctx, in, err)
		return
	}
	s.respond(ctx, in, "Leaderboard refreshed.", true)
}

// handleNotifyToggle grants the notify role, or revokes it if already held.
func (s *Service) handleNotifyToggle(ctx context.Context, in chat.Interaction) {
	state, err := s.loadContest(ctx, in.ServerID)
	if err != nil {
		s.respondErr(ctx, in, err)
		return
	}
	if state.NotifyRoleID == "" {
		s.respond(ctx, in, "Notifications are not set up for this contest.", true)
		return
	}

	has, err := s.platform.HasAnyRole(ctx, in.ServerID, in.Actor.ID, state.NotifyRoleID)
	if err != nil {
		s.respondErr(ctx, in, err)
		return
	}
	if has {
		err = s.platform.RevokeRole(ctx, in.ServerID, in.Actor.ID, state.NotifyRoleID)
	} else {
		err = s.platform.GrantRole(ctx, in.ServerID, in.Actor.ID, state.NotifyRoleID)
	}
	if err != nil {
		s.respondErr(ctx, in, err)
		return
	}
	if has {
		s.respond(ctx, in, "You will no longer be pinged for new questions.", true)
	} else {
		s.respond(ctx, in, "You will be pinged for every new question.", true)
	}
}

func (s *Service) respondErr(ctx context.Context, in chat.Interaction, err error) {
	if !errors.Is(err, contest.ErrUnauthorized) {
		s.logger.Error().Err(err).Str("server_id", in.ServerID).Str("custom_id", in.CustomID).Msg("interaction failed")
	}
	s.respond(ctx, in, contest.UserMessage(err), true)
}

func (s *Service) respond(ctx context.Context, in chat.Interaction, text string, private bool) {
	if err := s.platform.Respond(ctx, in, text, private); err != nil {
		s.logger.Warn().Err(err).Str("server_id", in.ServerID).Msg("interaction reply failed")
	}
}
