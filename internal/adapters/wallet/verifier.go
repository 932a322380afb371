package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

const (
	nonceField      = "Nonce: "
	expirationField = "Expiration Time: "
)

var (
	ErrNonceMismatch    = errors.New("message nonce does not match")
	ErrMessageExpired   = errors.New("message has expired")
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignerMismatch   = errors.New("signature does not match address")
)

// SignatureVerifier checks personal_sign (EIP-191) signatures over
// sign-in-with-ethereum style messages.
type SignatureVerifier struct {
	now func() time.Time
}

func NewVerifier() ports.WalletVerifier {
	return &SignatureVerifier{now: time.Now}
}

// Verify returns the checksummed signer address.
func (v *SignatureVerifier) Verify(ctx context.Context, payload ports.WalletPayload, nonce string) (string, error) {
	fields := messageFields(payload.Message)

	if nonce == "" || fields[nonceField] != nonce {
		return "", ErrNonceMismatch
	}
	if exp, ok := fields[expirationField]; ok {
		expiresAt, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			return "", fmt.Errorf("invalid expiration time: %w", err)
		}
		if !v.now().Before(expiresAt) {
			return "", ErrMessageExpired
		}
	}

	if !common.IsHexAddress(payload.Address) {
		return "", ErrInvalidAddress
	}
	address := common.HexToAddress(payload.Address)

	signer, err := recoverSigner(payload.Message, payload.Signature)
	if err != nil {
		return "", err
	}
	if signer != address {
		return "", ErrSignerMismatch
	}

	return address.Hex(), nil
}

func recoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}

	// Wallets produce v in {27, 28}; recovery expects {0, 1}.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func messageFields(message string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		for _, name := range []string{nonceField, expirationField} {
			if strings.HasPrefix(line, name) {
				fields[name] = strings.TrimSpace(strings.TrimPrefix(line, name))
			}
		}
	}
	return fields
}
