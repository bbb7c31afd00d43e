package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// VerificationCodeMin and VerificationCodeMax bound the 6-digit codes, inclusive.
	VerificationCodeMin = 100000
	VerificationCodeMax = 999999
)

var codeSpan = big.NewInt(VerificationCodeMax - VerificationCodeMin + 1)

// NewVerificationCode draws a code uniformly from [100000, 999999].
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+VerificationCodeMin), nil
}

// NewRefreshToken returns an opaque random UUIDv4 string.
func NewRefreshToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return id.String(), nil
}
