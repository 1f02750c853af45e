package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MakeNumericCode returns a uniformly random decimal string of exactly n digits
// (leading zeros allowed).
func MakeNumericCode(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// WipeByteArray zeroes b in place. Nil is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// StripBearer removes an optional "Bearer " scheme prefix (case-insensitive)
// and surrounding whitespace.
func StripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= len(BearerPrefix) && strings.EqualFold(token[:len(BearerPrefix)], BearerPrefix) {
		token = token[len(BearerPrefix):]
	}
	return strings.TrimSpace(token)
}
