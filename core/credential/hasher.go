// Package credential hashes and verifies account passwords.
package credential

import (
	"strings"

	"github.com/matthewhartstonge/argon2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Algorithms
const (
	Argon2 = "argon2"
	Bcrypt = "bcrypt"
)

// ErrHashing is the cause of every hashing or verification failure.
var ErrHashing = errors.New("credential hashing failed")

// Hasher produces salted, self-describing hashes. Verify accepts any hash this package can produce,
// whatever algorithm the Hasher itself uses.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) (bool, error)
}

// NewHasher returns the Hasher for algorithm. bcryptCost is ignored by argon2.
func NewHasher(algorithm string, bcryptCost int) (Hasher, error) {
	switch strings.ToLower(algorithm) {
	case "", Argon2:
		return NewArgon2Hasher(), nil
	case Bcrypt:
		return NewBcryptHasher(bcryptCost), nil
	default:
		return nil, errors.Errorf("unknown password hasher %q", algorithm)
	}
}

type Argon2Hasher struct {
	conf argon2.Config
}

var _ Hasher = (*Argon2Hasher)(nil)

// NewArgon2Hasher returns an argon2id Hasher with the library's recommended parameters.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{conf: argon2.DefaultConfig()}
}

func (h *Argon2Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.Wrap(ErrHashing, "empty plaintext")
	}
	encoded, err := h.conf.HashEncoded([]byte(plaintext))
	if err != nil {
		return "", errors.Wrapf(ErrHashing, "argon2: %v", err)
	}
	return string(encoded), nil
}

func (h *Argon2Hasher) Verify(plaintext, hashed string) (bool, error) {
	return verify(plaintext, hashed)
}

type BcryptHasher struct {
	cost int
}

var _ Hasher = (*BcryptHasher)(nil)

// NewBcryptHasher returns a bcrypt Hasher; out of range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.Wrap(ErrHashing, "empty plaintext")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", errors.Wrapf(ErrHashing, "bcrypt: %v", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(plaintext, hashed string) (bool, error) {
	return verify(plaintext, hashed)
}

func isBcrypt(hashed string) bool {
	return strings.HasPrefix(hashed, "$2a$") || strings.HasPrefix(hashed, "$2b$") || strings.HasPrefix(hashed, "$2y$")
}

func verify(plaintext, hashed string) (bool, error) {
	switch {
	case strings.HasPrefix(hashed, "$argon2"):
		ok, err := argon2.VerifyEncoded([]byte(plaintext), []byte(hashed))
		if err != nil {
			return false, errors.Wrapf(ErrHashing, "argon2: %v", err)
		}
		return ok, nil
	case isBcrypt(hashed):
		err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return false, nil
		} else if err != nil {
			return false, errors.Wrapf(ErrHashing, "bcrypt: %v", err)
		}
		return true, nil
	default:
		return false, errors.Wrap(ErrHashing, "unrecognized hash format")
	}
}
