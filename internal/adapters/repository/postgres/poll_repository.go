package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

const pollColumns = `p.id, p.author_user_id, p.title, p.description, p.options, p.start_date, p.end_date,
	p.tags, p.is_anonymous, p.status, p.participant_count, p.created_at`

const authorColumns = `u.id, u.world_id, u.name, u.profile_picture, u.polls_created_count,
	u.polls_participated_count, u.created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	query := `
		INSERT INTO polls (author_user_id, title, description, options, start_date, end_date, tags, is_anonymous, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, participant_count, created_at
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		poll.AuthorUserID, poll.Title, poll.Description, pq.Array(poll.Options),
		nullTime(poll.StartDate), nullTime(poll.EndDate), pq.Array(poll.Tags), poll.IsAnonymous, string(poll.Status),
	).Scan(&poll.ID, &poll.ParticipantCount, &poll.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert poll")
	}
	return nil
}

func (r *pollRepository) Update(ctx context.Context, poll *domain.Poll) error {
	query := `
		UPDATE polls
		SET title = $2, description = $3, options = $4, start_date = $5, end_date = $6, tags = $7, is_anonymous = $8
		WHERE id = $1
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		poll.ID, poll.Title, poll.Description, pq.Array(poll.Options),
		nullTime(poll.StartDate), nullTime(poll.EndDate), pq.Array(poll.Tags), poll.IsAnonymous,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update poll")
	}
	return expectRow(res, domain.ErrPollNotFound)
}

func (r *pollRepository) Delete(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete poll")
	}
	return expectRow(res, domain.ErrPollNotFound)
}

func (r *pollRepository) GetByID(ctx context.Context, id int64) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + `, ` + authorColumns + `
		FROM polls p
		JOIN users u ON u.id = p.author_user_id
		WHERE p.id = $1
	`
	poll, err := scanPollWithAuthor(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, errors.Wrap(err, "failed to get poll")
	}
	return poll, nil
}

func (r *pollRepository) DraftsByAuthor(ctx context.Context, authorID int64) ([]*domain.Poll, error) {
	query := `SELECT ` + pollColumns + `
		FROM polls p
		WHERE p.author_user_id = $1 AND p.status = $2
		ORDER BY p.created_at DESC, p.id DESC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, authorID, string(domain.PollStatusDraft))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get drafts")
	}
	defer rows.Close()

	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan poll")
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating polls")
	}
	return polls, nil
}

func (r *pollRepository) DeleteDrafts(ctx context.Context, authorID int64) error {
	query := `DELETE FROM polls WHERE author_user_id = $1 AND status = $2`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, authorID, string(domain.PollStatusDraft))
	return errors.Wrap(err, "failed to delete drafts")
}

func (r *pollRepository) SetParticipantCount(ctx context.Context, pollID int64, count int) error {
	query := `UPDATE polls SET participant_count = $2 WHERE id = $1`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, pollID, count)
	return errors.Wrap(err, "failed to update participant count")
}

func (r *pollRepository) Find(ctx context.Context, c ports.PollCriteria, order ports.PollOrder, limit, offset int, viewerID int64) ([]domain.PollView, error) {
	orderBy, err := orderClause(order)
	if err != nil {
		return nil, err
	}

	q := newPollQuery(c, viewerID)
	query := `SELECT ` + pollColumns + `, ` + authorColumns + `,
			EXISTS (SELECT 1 FROM votes v WHERE v.poll_id = p.id AND v.user_id = $1) AS has_voted
		FROM polls p
		JOIN users u ON u.id = p.author_user_id` +
		q.whereClause() + orderBy + q.page(limit, offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, q.args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list polls")
	}
	defer rows.Close()

	var views []domain.PollView
	for rows.Next() {
		var view domain.PollView
		poll, err := scanPollWithAuthor(rows, &view.HasVoted)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan poll")
		}
		view.Poll = *poll
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating polls")
	}
	return views, nil
}

func (r *pollRepository) Count(ctx context.Context, c ports.PollCriteria) (int, error) {
	q := newPollQuery(c)
	query := `SELECT COUNT(*) FROM polls p` + q.whereClause()

	var count int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, q.args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count polls")
	}
	return count, nil
}

func (r *pollRepository) Search(ctx context.Context, search string) ([]int64, error) {
	tsq := tsQuery(search)
	if tsq == "" {
		return []int64{}, nil
	}

	query := `
		SELECT id FROM polls
		WHERE search_vector @@ to_tsquery('english', $1) AND status = $2
		ORDER BY ts_rank(search_vector, to_tsquery('english', $1)) DESC, id
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, tsq, string(domain.PollStatusPublished))
	if err != nil {
		return nil, errors.Wrap(err, "failed to search polls")
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *pollRepository) CountCreatedBetween(ctx context.Context, dr ports.DateRange) (int, error) {
	q := &pollQuery{}
	if dr.From != nil {
		q.where("p.created_at >= " + q.arg(*dr.From))
	}
	if dr.To != nil {
		q.where("p.created_at <= " + q.arg(*dr.To))
	}

	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM polls p`+q.whereClause(), q.args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count polls")
	}
	return count, nil
}

func (r *pollRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT id FROM polls ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list polls")
	}
	defer rows.Close()

	return scanIDs(rows)
}

func scanPoll(s scanner, extra ...interface{}) (*domain.Poll, error) {
	var (
		poll      domain.Poll
		status    string
		startDate sql.NullTime
		endDate   sql.NullTime
	)
	dest := []interface{}{
		&poll.ID, &poll.AuthorUserID, &poll.Title, &poll.Description, pq.Array(&poll.Options),
		&startDate, &endDate, pq.Array(&poll.Tags), &poll.IsAnonymous, &status,
		&poll.ParticipantCount, &poll.CreatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	poll.Status = domain.PollStatus(status)
	poll.StartDate = timePtr(startDate)
	poll.EndDate = timePtr(endDate)
	if poll.Options == nil {
		poll.Options = []string{}
	}
	if poll.Tags == nil {
		poll.Tags = []string{}
	}
	return &poll, nil
}

func scanPollWithAuthor(s scanner, extra ...interface{}) (*domain.Poll, error) {
	var (
		author  domain.User
		picture sql.NullString
	)
	dest := []interface{}{
		&author.ID, &author.WorldID, &author.Name, &picture,
		&author.PollsCreatedCount, &author.PollsParticipatedCount, &author.CreatedAt,
	}

	poll, err := scanPoll(s, append(dest, extra...)...)
	if err != nil {
		return nil, err
	}
	if picture.Valid {
		author.ProfilePicture = &picture.String
	}
	poll.Author = &author
	return poll, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating ids")
	}
	return ids, nil
}

// expectRow returns notFound when res affected no rows.
func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
