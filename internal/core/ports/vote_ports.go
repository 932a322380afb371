package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
)

type VoteRepository interface {
	// Create fails with domain.ErrAlreadyVoted when the user already has a
	// vote on the poll.
	Create(ctx context.Context, vote *domain.Vote) error
	Update(ctx context.Context, vote *domain.Vote) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vote, error)
	// GetByUserAndPoll returns nil when the user has not voted on the poll.
	GetByUserAndPoll(ctx context.Context, userID, pollID int64) (*domain.Vote, error)
	PollIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	WeightsByPoll(ctx context.Context, pollID int64) ([]domain.Weights, error)
	ListByPoll(ctx context.Context, pollID int64) ([]domain.PollVoteEntry, error)
}

type VoteService interface {
	Create(ctx context.Context, worldID string, pollID int64, weights domain.Weights) (*domain.Vote, error)
	Edit(ctx context.Context, worldID string, voteID uuid.UUID, weights domain.Weights) (*domain.Vote, error)
	Count(ctx context.Context, r DateRange) (int, error)
}
