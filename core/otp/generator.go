package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

const (
	digits = "0123456789"
	// no 0/O, 1/I/L
	alphanumerics = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// Generate returns a random code of length characters drawn from crypto/rand.
func Generate(length int, alphanumeric bool) (string, error) {
	if length <= 0 {
		return "", errors.New("otp length must be positive")
	}
	charset := digits
	if alphanumeric {
		charset = alphanumerics
	}
	max := big.NewInt(int64(len(charset)))

	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "reading random")
		}
		sb.WriteByte(charset[n.Int64()])
	}
	return sb.String(), nil
}

// normalizeCode drops surrounding spaces and upper-cases so alphanumeric codes are case-insensitive.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// hashCode is the hex HMAC-SHA256 of owner and code keyed by secret.
func hashCode(secret []byte, owner, code string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(owner))
	h.Write([]byte{0})
	h.Write([]byte(normalizeCode(code)))
	return hex.EncodeToString(h.Sum(nil))
}

func codeMatches(secret []byte, owner, code, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashCode(secret, owner, code)), []byte(hash)) == 1
}
