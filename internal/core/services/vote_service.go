package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type voteService struct {
	tx        ports.Transactor
	pollRepo  ports.PollRepository
	voteRepo  ports.VoteRepository
	users     ports.UserRepository
	actions   ports.ActionRepository
	counters  ports.CounterService
	validator *domain.WeightValidator
	log       *logrus.Entry
	now       func() time.Time
}

func NewVoteService(
	tx ports.Transactor,
	pollRepo ports.PollRepository,
	voteRepo ports.VoteRepository,
	users ports.UserRepository,
	actions ports.ActionRepository,
	counters ports.CounterService,
	validator *domain.WeightValidator,
	logger *logrus.Logger,
) ports.VoteService {
	return &voteService{
		tx:        tx,
		pollRepo:  pollRepo,
		voteRepo:  voteRepo,
		users:     users,
		actions:   actions,
		counters:  counters,
		validator: validator,
		log:       logger.WithField("component", "vote_service"),
		now:       time.Now,
	}
}

func (s *voteService) Create(ctx context.Context, worldID string, pollID int64, weights domain.Weights) (*domain.Vote, error) {
	user, err := resolveUser(ctx, s.users, worldID)
	if err != nil {
		return nil, err
	}

	var vote *domain.Vote
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		poll, err := s.activePoll(ctx, pollID)
		if err != nil {
			return err
		}

		existing, err := s.voteRepo.GetByUserAndPoll(ctx, user.ID, pollID)
		if err != nil {
			return fmt.Errorf("failed to check existing vote: %w", err)
		}
		if existing != nil {
			return domain.ErrAlreadyVoted
		}

		if err := s.validator.Validate(weights, poll.Options); err != nil {
			return err
		}

		vote = &domain.Vote{
			ID:                 uuid.New(),
			UserID:             user.ID,
			PollID:             pollID,
			VotingPower:        s.validator.VotingPower,
			WeightDistribution: weights,
		}
		if err := s.voteRepo.Create(ctx, vote); err != nil {
			return err
		}

		action := &domain.UserAction{UserID: user.ID, PollID: pollID, Type: domain.ActionVoted}
		if err := s.actions.Append(ctx, action); err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}

		if err := s.counters.Recount(ctx, user.ID, domain.ActionVoted); err != nil {
			return err
		}
		return s.counters.RecountParticipants(ctx, pollID)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"poll_id": pollID, "user_id": user.ID, "vote_id": vote.ID}).Info("vote cast")
	return vote, nil
}

// Edit replaces the weight distribution of an existing vote in place.
func (s *voteService) Edit(ctx context.Context, worldID string, voteID uuid.UUID, weights domain.Weights) (*domain.Vote, error) {
	user, err := resolveUser(ctx, s.users, worldID)
	if err != nil {
		return nil, err
	}

	var vote *domain.Vote
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.voteRepo.GetByID(ctx, voteID)
		if err != nil {
			return err
		}
		if existing.UserID != user.ID {
			return domain.ErrNotVoteOwner
		}

		poll, err := s.activePoll(ctx, existing.PollID)
		if err != nil {
			return err
		}

		if err := s.validator.Validate(weights, poll.Options); err != nil {
			return err
		}

		existing.WeightDistribution = weights
		if err := s.voteRepo.Update(ctx, existing); err != nil {
			return err
		}
		vote = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return vote, nil
}

func (s *voteService) Count(ctx context.Context, r ports.DateRange) (int, error) {
	count, err := s.actions.CountBetween(ctx, domain.ActionVoted, r)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

// activePoll loads a poll that currently accepts votes.
func (s *voteService) activePoll(ctx context.Context, pollID int64) (*domain.Poll, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Status != domain.PollStatusPublished || !poll.IsActive(s.now()) {
		return nil, domain.ErrPollNotFound
	}
	return poll, nil
}
