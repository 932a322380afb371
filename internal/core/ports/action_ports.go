package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
)

type ActionRepository interface {
	Append(ctx context.Context, action *domain.UserAction) error
	CountByUser(ctx context.Context, userID int64, action domain.ActionType) (int, error)
	CountByPoll(ctx context.Context, pollID int64, action domain.ActionType) (int, error)
	DistinctUsers(ctx context.Context, pollID int64, action domain.ActionType) ([]int64, error)
	CountBetween(ctx context.Context, action domain.ActionType, r DateRange) (int, error)
	ListActivities(ctx context.Context, userID int64, filter domain.ActivityFilter, now time.Time) ([]domain.Activity, error)
}

type CounterService interface {
	Recount(ctx context.Context, userID int64, action domain.ActionType) error
	RecountParticipants(ctx context.Context, pollID int64) error
}

type ReconcileService interface {
	ReconcileAll(ctx context.Context) error
}

// DateRange is an optional inclusive range. Nil bounds are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}
