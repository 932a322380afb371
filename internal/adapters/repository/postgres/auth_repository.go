package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type AuthRepository struct {
	db *sql.DB
}

func NewAuthRepository(db *sql.DB) ports.AuthRepository {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt, token.Revoked).
		Scan(&token.ID, &token.CreatedAt)
	return errors.Wrap(err, "failed to store refresh token")
}

func (r *AuthRepository) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	token := &domain.RefreshToken{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get refresh token")
	}
	return token, nil
}

func (r *AuthRepository) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE refresh_tokens SET revoked = true WHERE id = $1`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	return errors.Wrap(err, "failed to revoke refresh token")
}

// StoreNonce records an issued sign-in nonce and prunes expired ones.
func (r *AuthRepository) StoreNonce(ctx context.Context, nonce string, expiresAt time.Time) error {
	db := conn(ctx, r.db)
	if _, err := db.ExecContext(ctx, `DELETE FROM auth_nonces WHERE expires_at <= NOW()`); err != nil {
		return errors.Wrap(err, "failed to prune nonces")
	}

	_, err := db.ExecContext(ctx, `INSERT INTO auth_nonces (nonce, expires_at) VALUES ($1, $2)`, nonce, expiresAt)
	return errors.Wrap(err, "failed to store nonce")
}

func (r *AuthRepository) ConsumeNonce(ctx context.Context, nonce string, now time.Time) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM auth_nonces WHERE nonce = $1 AND expires_at > $2`, nonce, now)
	if err != nil {
		return false, errors.Wrap(err, "failed to consume nonce")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to consume nonce")
	}
	return n == 1, nil
}
