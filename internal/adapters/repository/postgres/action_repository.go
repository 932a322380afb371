package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type actionRepository struct {
	db *sql.DB
}

func NewActionRepository(db *sql.DB) ports.ActionRepository {
	return &actionRepository{
		db: db,
	}
}

func (r *actionRepository) Append(ctx context.Context, action *domain.UserAction) error {
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}

	query := `
		INSERT INTO user_actions (id, user_id, poll_id, type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, action.ID, action.UserID, action.PollID, string(action.Type)).
		Scan(&action.CreatedAt)
	return errors.Wrap(err, "failed to append user action")
}

func (r *actionRepository) CountByUser(ctx context.Context, userID int64, action domain.ActionType) (int, error) {
	query := `SELECT COUNT(*) FROM user_actions WHERE user_id = $1 AND type = $2`
	return r.count(ctx, query, userID, string(action))
}

func (r *actionRepository) CountByPoll(ctx context.Context, pollID int64, action domain.ActionType) (int, error) {
	query := `SELECT COUNT(DISTINCT user_id) FROM user_actions WHERE poll_id = $1 AND type = $2`
	return r.count(ctx, query, pollID, string(action))
}

func (r *actionRepository) DistinctUsers(ctx context.Context, pollID int64, action domain.ActionType) ([]int64, error) {
	query := `SELECT DISTINCT user_id FROM user_actions WHERE poll_id = $1 AND type = $2 ORDER BY user_id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, pollID, string(action))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list poll users")
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *actionRepository) CountBetween(ctx context.Context, action domain.ActionType, dr ports.DateRange) (int, error) {
	q := &pollQuery{}
	q.where("type = " + q.arg(string(action)))
	if dr.From != nil {
		q.where("created_at >= " + q.arg(*dr.From))
	}
	if dr.To != nil {
		q.where("created_at <= " + q.arg(*dr.To))
	}
	return r.count(ctx, `SELECT COUNT(*) FROM user_actions`+q.whereClause(), q.args...)
}

// ListActivities returns the user's actions joined with their polls, latest
// ending poll first. A poll counts as active until its end date has passed.
func (r *actionRepository) ListActivities(ctx context.Context, userID int64, filter domain.ActivityFilter, now time.Time) ([]domain.Activity, error) {
	q := &pollQuery{}
	q.where("a.user_id = " + q.arg(userID))
	switch filter {
	case domain.ActivityActive:
		q.where("p.end_date >= " + q.arg(now))
	case domain.ActivityInactive:
		q.where("p.end_date < " + q.arg(now))
	case domain.ActivityCreated:
		q.where("a.type = " + q.arg(string(domain.ActionCreated)))
	case domain.ActivityParticipated:
		q.where("a.type = " + q.arg(string(domain.ActionVoted)))
	}

	query := `
		SELECT a.type, p.id, p.title, p.description, p.end_date, p.participant_count, p.author_user_id
		FROM user_actions a
		JOIN polls p ON p.id = a.poll_id` +
		q.whereClause() + `
		ORDER BY p.end_date DESC NULLS LAST, a.created_at DESC`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, q.args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user activities")
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		var (
			activity domain.Activity
			endDate  sql.NullTime
		)
		err := rows.Scan(&activity.Type, &activity.PollID, &activity.PollTitle, &activity.PollDescription,
			&endDate, &activity.VotersParticipated, &activity.AuthorUserID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan activity")
		}
		activity.Type = strings.ToLower(activity.Type)
		activity.EndDate = timePtr(endDate)
		activity.IsActive = endDate.Valid && !endDate.Time.Before(now)
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating activities")
	}
	return activities, nil
}

func (r *actionRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count user actions")
	}
	return count, nil
}
