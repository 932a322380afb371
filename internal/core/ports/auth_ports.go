package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
)

type AuthRepository interface {
	StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error

	StoreNonce(ctx context.Context, nonce string, expiresAt time.Time) error
	// ConsumeNonce deletes nonce and reports whether it existed and was
	// still valid at now.
	ConsumeNonce(ctx context.Context, nonce string, now time.Time) (bool, error)
}

// WalletPayload is a signed sign-in message produced by the user's wallet.
type WalletPayload struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Address   string `json:"address"`
}

type WalletVerifier interface {
	// Verify checks that payload was signed by its address over a message
	// bound to nonce and returns the wallet identity.
	Verify(ctx context.Context, payload WalletPayload, nonce string) (string, error)
}

type UserDetails struct {
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

type Claims struct {
	UserID  int64
	WorldID string
	Address string
}

type AuthService interface {
	GenerateNonce(ctx context.Context) (string, error)
	LoginWithWallet(ctx context.Context, payload WalletPayload, nonce string, details UserDetails) (string, string, error) // returns access_token, refresh_token, error
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	ParseAccessToken(token string) (*Claims, error)
}
