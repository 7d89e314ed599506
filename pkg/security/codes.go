package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ten = big.NewInt(10)

// GenerateNumericCode returns a uniformly random code of the given number
// of digits, used for email verification and password reset.
func GenerateNumericCode(digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", errors.New("digits must be between 1 and 18")
	}
	code := make([]byte, digits)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		code[i] = '0' + byte(n.Int64())
	}
	return string(code), nil
}

// HashCode is the stored form of a one-time code. Raw codes are only ever
// sent by mail.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

// CodeMatches compares a submitted code with its stored digest in constant time.
func CodeMatches(code, digest string) bool {
	return digest != "" && subtle.ConstantTimeCompare([]byte(HashCode(code)), []byte(digest)) == 1
}
