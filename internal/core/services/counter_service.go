package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

// counterService keeps denormalized counters equal to the number of matching
// rows in the action log. Counters are always recounted, never adjusted.
type counterService struct {
	actions ports.ActionRepository
	users   ports.UserRepository
	polls   ports.PollRepository
}

func NewCounterService(actions ports.ActionRepository, users ports.UserRepository, polls ports.PollRepository) ports.CounterService {
	return &counterService{
		actions: actions,
		users:   users,
		polls:   polls,
	}
}

func (s *counterService) Recount(ctx context.Context, userID int64, action domain.ActionType) error {
	count, err := s.actions.CountByUser(ctx, userID, action)
	if err != nil {
		return fmt.Errorf("failed to count %s actions of user %d: %w", action, userID, err)
	}

	if err := s.users.SetActionCount(ctx, userID, action, count); err != nil {
		return fmt.Errorf("failed to update %s count of user %d: %w", action, userID, err)
	}
	return nil
}

func (s *counterService) RecountParticipants(ctx context.Context, pollID int64) error {
	count, err := s.actions.CountByPoll(ctx, pollID, domain.ActionVoted)
	if err != nil {
		return fmt.Errorf("failed to count participants of poll %d: %w", pollID, err)
	}

	if err := s.polls.SetParticipantCount(ctx, pollID, count); err != nil {
		return fmt.Errorf("failed to update participant count of poll %d: %w", pollID, err)
	}
	return nil
}
