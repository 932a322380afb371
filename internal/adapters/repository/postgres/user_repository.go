package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

const userColumns = `id, world_id, name, profile_picture, is_admin, polls_created_count, polls_participated_count, created_at`

var counterColumns = map[domain.ActionType]string{
	domain.ActionCreated: "polls_created_count",
	domain.ActionVoted:   "polls_participated_count",
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) ports.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByWorldID(ctx context.Context, worldID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE world_id = $1`
	return r.getOne(ctx, query, worldID)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// Upsert creates the user or refreshes the name and picture of an existing
// one with the same world id.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (world_id, name, profile_picture)
		VALUES ($1, $2, $3)
		ON CONFLICT (world_id) DO UPDATE
		SET name = EXCLUDED.name, profile_picture = COALESCE(EXCLUDED.profile_picture, users.profile_picture)
		RETURNING ` + userColumns
	saved, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, user.WorldID, user.Name, user.ProfilePicture))
	if err != nil {
		return errors.Wrap(err, "failed to upsert user")
	}
	*user = *saved
	return nil
}

func (r *UserRepository) SetActionCount(ctx context.Context, userID int64, action domain.ActionType, count int) error {
	column, ok := counterColumns[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, action)
	}

	query := fmt.Sprintf(`UPDATE users SET %s = $2 WHERE id = $1`, column)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, userID, count)
	if err != nil {
		return errors.Wrap(err, "failed to update user counter")
	}
	return expectRow(res, domain.ErrUserNotFound)
}

func (r *UserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	return user, nil
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		user    domain.User
		picture sql.NullString
	)
	err := s.Scan(&user.ID, &user.WorldID, &user.Name, &picture, &user.IsAdmin,
		&user.PollsCreatedCount, &user.PollsParticipatedCount, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	if picture.Valid {
		user.ProfilePicture = &picture.String
	}
	return &user, nil
}
