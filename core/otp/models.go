package otp

import "time"

// Code is a one-time sign-in code. Only its hash is stored.
type Code struct {
	ID         string
	OwnerEmail string
	CodeHash   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	RevokedAt  *time.Time // superseded by a newer code or too many failed attempts
	Attempts   int
}

// IsUsable reports whether the code was neither consumed nor revoked. Expiry is checked separately.
func (c Code) IsUsable() bool { return c.ConsumedAt == nil && c.RevokedAt == nil }

// IsExpired reports whether now is strictly past the expiry instant.
func (c Code) IsExpired(now time.Time) bool { return now.After(c.ExpiresAt) }

type AllowListEntry struct {
	Email   string    `json:"email"`
	AddedAt time.Time `json:"addedAt"`
}

// Issued describes a freshly sent code.
type Issued struct {
	OwnerEmail string    `json:"email"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Verified describes a successfully consumed code.
type Verified struct {
	OwnerEmail string
	CodeID     string
}
