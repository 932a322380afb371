package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	nonceTTL        = 2 * time.Minute
	nonceLength     = 32 // hex characters
)

var errNoSigningKey = errors.New("jwt signing key is not configured")

type AuthService struct {
	userRepo       ports.UserRepository
	authRepo       ports.AuthRepository
	walletVerifier ports.WalletVerifier
	jwtSecret      []byte
	log            *logrus.Entry
}

func NewAuthService(userRepo ports.UserRepository, authRepo ports.AuthRepository, walletVerifier ports.WalletVerifier, jwtSecret string, logger *logrus.Logger) *AuthService {
	log := logger.WithField("component", "auth_service")
	if jwtSecret == "" {
		log.Error("JWT_SECRET not set, access tokens will be rejected")
	}

	return &AuthService{
		userRepo:       userRepo,
		authRepo:       authRepo,
		walletVerifier: walletVerifier,
		jwtSecret:      []byte(jwtSecret),
		log:            log,
	}
}

// GenerateNonce issues a sign-in nonce that can be redeemed once within nonceTTL.
func (s *AuthService) GenerateNonce(ctx context.Context) (string, error) {
	b := make([]byte, nonceLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(b)

	if err := s.authRepo.StoreNonce(ctx, nonce, time.Now().Add(nonceTTL)); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return nonce, nil
}

func (s *AuthService) LoginWithWallet(ctx context.Context, payload ports.WalletPayload, nonce string, details ports.UserDetails) (string, string, error) {
	worldID, err := s.walletVerifier.Verify(ctx, payload, nonce)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrInvalidProof, err)
	}

	name := strings.TrimSpace(details.Username)
	if name == "" {
		return "", "", fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}

	valid, err := s.authRepo.ConsumeNonce(ctx, nonce, time.Now())
	if err != nil {
		return "", "", fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !valid {
		return "", "", fmt.Errorf("%w: nonce is unknown, expired or already used", domain.ErrInvalidProof)
	}

	user := &domain.User{WorldID: worldID, Name: name}
	if details.ProfilePictureURL != "" {
		picture := details.ProfilePictureURL
		user.ProfilePicture = &picture
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return "", "", fmt.Errorf("failed to create user: %w", err)
	}

	accessToken, err := s.generateAccessToken(user, payload.Address)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	rtEntity := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: s.hashToken(refreshToken),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.authRepo.StoreRefreshToken(ctx, rtEntity); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("user signed in")
	return accessToken, refreshToken, nil
}

func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, s.hashToken(refreshToken))
	if err != nil {
		return "", "", fmt.Errorf("failed to get refresh token: %w", err)
	}
	if rtEntity == nil {
		return "", "", errors.New("refresh token not found")
	}
	if rtEntity.Revoked {
		return "", "", errors.New("refresh token revoked")
	}
	if rtEntity.ExpiresAt.Before(time.Now()) {
		return "", "", errors.New("refresh token expired")
	}

	user, err := s.userRepo.GetByID(ctx, rtEntity.UserID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", "", domain.ErrUserNotFound
	}

	accessToken, err := s.generateAccessToken(user, user.WorldID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	// The refresh token is kept until it expires.
	return accessToken, refreshToken, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, s.hashToken(refreshToken))
	if err != nil {
		return fmt.Errorf("failed to get refresh token: %w", err)
	}
	if rtEntity == nil {
		return nil
	}

	return s.authRepo.RevokeRefreshToken(ctx, rtEntity.ID)
}

// ParseAccessToken validates an HS256 access token and returns its claims.
func (s *AuthService) ParseAccessToken(tokenString string) (*ports.Claims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, errNoSigningKey
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}

	worldID, _ := claims["worldID"].(string)
	if worldID == "" {
		return nil, errors.New("worldID not found in claims")
	}
	address, _ := claims["address"].(string)

	return &ports.Claims{UserID: userID, WorldID: worldID, Address: address}, nil
}

func (s *AuthService) generateAccessToken(user *domain.User, address string) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", errNoSigningKey
	}

	claims := jwt.MapClaims{
		"sub":     strconv.FormatInt(user.ID, 10),
		"worldID": user.WorldID,
		"address": address,
		"exp":     time.Now().Add(accessTokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (s *AuthService) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
