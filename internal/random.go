package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// TempTokenSize is the raw entropy of a 2FA correlation token.
	TempTokenSize = 16
	// SessionTokenSize is the raw entropy of an opaque session token.
	SessionTokenSize = 32
	// CodeDigits is the length of a one-time code.
	CodeDigits = 6
)

// NewHexToken returns size random bytes, hex-encoded.
func NewHexToken(size int) (string, error) {
	if size < TempTokenSize {
		return "", errors.New("token size below minimum entropy")
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// IsHexToken reports whether token looks like the output of NewHexToken(size).
func IsHexToken(token string, size int) bool {
	if len(token) != size*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// NewOTP returns a zero-padded decimal code. Each digit is drawn
// independently, so the whole range including leading zeros is uniform.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// IsNumericCode reports whether code is exactly digits decimal characters.
func IsNumericCode(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
