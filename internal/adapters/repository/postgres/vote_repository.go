package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

const voteColumns = `id, user_id, poll_id, voting_power, weight_distribution, proof, created_at, updated_at`

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) Create(ctx context.Context, vote *domain.Vote) error {
	weights, err := json.Marshal(vote.WeightDistribution)
	if err != nil {
		return errors.Wrap(err, "failed to encode weights")
	}

	query := `
		INSERT INTO votes (id, user_id, poll_id, voting_power, weight_distribution, proof)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err = conn(ctx, r.db).QueryRowContext(ctx, query,
		vote.ID, vote.UserID, vote.PollID, vote.VotingPower, weights, vote.Proof,
	).Scan(&vote.CreatedAt, &vote.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyVoted
		}
		return errors.Wrap(err, "failed to save vote")
	}
	return nil
}

func (r *voteRepository) Update(ctx context.Context, vote *domain.Vote) error {
	weights, err := json.Marshal(vote.WeightDistribution)
	if err != nil {
		return errors.Wrap(err, "failed to encode weights")
	}

	query := `
		UPDATE votes SET weight_distribution = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = conn(ctx, r.db).QueryRowContext(ctx, query, vote.ID, weights).Scan(&vote.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrVoteNotFound
		}
		return errors.Wrap(err, "failed to update vote")
	}
	return nil
}

func (r *voteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE id = $1`
	vote, err := scanVote(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoteNotFound
		}
		return nil, errors.Wrap(err, "failed to get vote")
	}
	return vote, nil
}

func (r *voteRepository) GetByUserAndPoll(ctx context.Context, userID, pollID int64) (*domain.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM votes WHERE user_id = $1 AND poll_id = $2`
	vote, err := scanVote(conn(ctx, r.db).QueryRowContext(ctx, query, userID, pollID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to check existing vote")
	}
	return vote, nil
}

func (r *voteRepository) PollIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT poll_id FROM votes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list voted polls")
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *voteRepository) WeightsByPoll(ctx context.Context, pollID int64) ([]domain.Weights, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT weight_distribution FROM votes WHERE poll_id = $1`, pollID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get poll weights")
	}
	defer rows.Close()

	var all []domain.Weights
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan weights")
		}
		weights, err := decodeWeights(raw)
		if err != nil {
			return nil, err
		}
		all = append(all, weights)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating weights")
	}
	return all, nil
}

func (r *voteRepository) ListByPoll(ctx context.Context, pollID int64) ([]domain.PollVoteEntry, error) {
	query := `
		SELECT u.name, v.weight_distribution
		FROM votes v
		JOIN users u ON u.id = v.user_id
		WHERE v.poll_id = $1
		ORDER BY v.created_at, v.id
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list poll votes")
	}
	defer rows.Close()

	entries := []domain.PollVoteEntry{}
	for rows.Next() {
		var (
			entry domain.PollVoteEntry
			raw   []byte
		)
		if err := rows.Scan(&entry.Username, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan vote")
		}
		if entry.QuadraticWeights, err = decodeWeights(raw); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating votes")
	}
	return entries, nil
}

func scanVote(s scanner) (*domain.Vote, error) {
	var (
		vote  domain.Vote
		raw   []byte
		proof sql.NullString
	)
	err := s.Scan(&vote.ID, &vote.UserID, &vote.PollID, &vote.VotingPower, &raw, &proof, &vote.CreatedAt, &vote.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if vote.WeightDistribution, err = decodeWeights(raw); err != nil {
		return nil, err
	}
	if proof.Valid {
		vote.Proof = &proof.String
	}
	return &vote, nil
}

func decodeWeights(raw []byte) (domain.Weights, error) {
	weights := domain.Weights{}
	if err := json.Unmarshal(raw, &weights); err != nil {
		return nil, errors.Wrap(err, "failed to decode weights")
	}
	return weights, nil
}
