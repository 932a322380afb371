package ports

import (
	"context"

	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
)

type UserRepository interface {
	// GetByWorldID returns nil when no user has the given wallet identity.
	GetByWorldID(ctx context.Context, worldID string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Upsert(ctx context.Context, user *domain.User) error
	SetActionCount(ctx context.Context, userID int64, action domain.ActionType, count int) error
	ListIDs(ctx context.Context) ([]int64, error)
}

type UserService interface {
	GetUserData(ctx context.Context, worldID string) (*domain.UserData, error)
	GetActivities(ctx context.Context, worldID string, filter domain.ActivityFilter) ([]domain.Activity, error)
	GetUserVote(ctx context.Context, worldID string, pollID int64) (*domain.UserVote, error)
}
