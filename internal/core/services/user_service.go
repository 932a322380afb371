package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type UserService struct {
	repo    ports.UserRepository
	actions ports.ActionRepository
	polls   ports.PollRepository
	votes   ports.VoteRepository
	now     func() time.Time
}

func NewUserService(repo ports.UserRepository, actions ports.ActionRepository, polls ports.PollRepository, votes ports.VoteRepository) ports.UserService {
	return &UserService{
		repo:    repo,
		actions: actions,
		polls:   polls,
		votes:   votes,
		now:     time.Now,
	}
}

func (s *UserService) GetUserData(ctx context.Context, worldID string) (*domain.UserData, error) {
	user, err := resolveUser(ctx, s.repo, worldID)
	if err != nil {
		return nil, err
	}
	return &domain.UserData{
		WorldID:           user.WorldID,
		PollsCreated:      user.PollsCreatedCount,
		PollsParticipated: user.PollsParticipatedCount,
	}, nil
}

func (s *UserService) GetActivities(ctx context.Context, worldID string, filter domain.ActivityFilter) ([]domain.Activity, error) {
	if !filter.Valid() {
		return nil, fmt.Errorf("%w: unsupported activity filter %q", domain.ErrInvalidInput, filter)
	}

	user, err := resolveUser(ctx, s.repo, worldID)
	if err != nil {
		return nil, err
	}

	activities, err := s.actions.ListActivities(ctx, user.ID, filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get user activities: %w", err)
	}
	if activities == nil {
		activities = []domain.Activity{}
	}
	return activities, nil
}

// GetUserVote returns the user's vote on a poll that has not ended yet.
func (s *UserService) GetUserVote(ctx context.Context, worldID string, pollID int64) (*domain.UserVote, error) {
	user, err := resolveUser(ctx, s.repo, worldID)
	if err != nil {
		return nil, err
	}

	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.EndDate == nil || poll.EndDate.Before(s.now()) {
		return nil, domain.ErrPollNotFound
	}

	vote, err := s.votes.GetByUserAndPoll(ctx, user.ID, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	if vote == nil {
		return nil, domain.ErrVoteNotFound
	}

	return &domain.UserVote{
		Options:            poll.Options,
		VotingPower:        vote.VotingPower,
		WeightDistribution: vote.WeightDistribution,
	}, nil
}
