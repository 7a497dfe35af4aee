package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/madrasa/core/otp"
)

func (db *DB) CreateCode(_ context.Context, code otp.Code) (otp.Code, error) {
	t := db.code
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, c := range t.table {
		if c.OwnerEmail == code.OwnerEmail && c.IsUsable() {
			c.RevokedAt = timePtr(code.IssuedAt)
		}
	}
	t.table[code.ID] = &code
	return code, nil
}

// newest returns the most recently issued code of owner matching keep, or nil.
func (t *codeTable) newest(owner string, keep func(*otp.Code) bool) *otp.Code {
	var found *otp.Code
	for _, c := range t.table {
		if c.OwnerEmail != owner || !keep(c) {
			continue
		}
		if found == nil || c.IssuedAt.After(found.IssuedAt) {
			found = c
		}
	}
	return found
}

func (db *DB) LatestCode(_ context.Context, owner string) (otp.Code, error) {
	t := db.code
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if c := t.newest(owner, func(*otp.Code) bool { return true }); c != nil {
		return *c, nil
	}
	return otp.Code{}, otp.ErrNotFound
}

func (db *DB) ActiveCode(_ context.Context, owner string) (otp.Code, error) {
	t := db.code
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if c := t.newest(owner, (*otp.Code).IsUsable); c != nil {
		return *c, nil
	}
	return otp.Code{}, otp.ErrNotFound
}

func (db *DB) ConsumeCode(_ context.Context, id string, at time.Time) (bool, error) {
	t := db.code
	t.mutex.Lock()
	defer t.mutex.Unlock()

	c, ok := t.table[id]
	if !ok || !c.IsUsable() {
		return false, nil
	}
	c.ConsumedAt = timePtr(at)
	return true, nil
}

func (db *DB) RegisterCodeFailure(_ context.Context, id string, maxAttempts int, at time.Time) (int, error) {
	t := db.code
	t.mutex.Lock()
	defer t.mutex.Unlock()

	c, ok := t.table[id]
	if !ok || !c.IsUsable() {
		return 0, otp.ErrNotFound
	}
	c.Attempts++
	if c.Attempts >= maxAttempts {
		c.RevokedAt = timePtr(at)
	}
	return c.Attempts, nil
}

func (db *DB) DeleteExpiredCodes(_ context.Context, before time.Time) (int64, error) {
	t := db.code
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var n int64
	for id, c := range t.table {
		if c.ExpiresAt.Before(before) {
			delete(t.table, id)
			n++
		}
	}
	return n, nil
}
