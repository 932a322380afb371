package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

// resolveUser maps a wallet identity to the stored user.
func resolveUser(ctx context.Context, users ports.UserRepository, worldID string) (*domain.User, error) {
	user, err := users.GetByWorldID(ctx, worldID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
