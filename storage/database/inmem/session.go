package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/madrasa/core/auth"
)

func (db *DB) CreateSession(_ context.Context, sess auth.Session) (auth.Session, error) {
	t := db.session
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.table[sess.ID] = &sess
	return sess, nil
}

func (db *DB) GetSession(_ context.Context, id string) (auth.Session, error) {
	t := db.session
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if sess, ok := t.table[id]; ok {
		return *sess, nil
	}
	return auth.Session{}, auth.ErrSessionNotFound
}

func (db *DB) RevokeSession(_ context.Context, id string, at time.Time) error {
	t := db.session
	t.mutex.Lock()
	defer t.mutex.Unlock()

	sess, ok := t.table[id]
	if !ok {
		return auth.ErrSessionNotFound
	}
	if sess.RevokedAt == nil {
		sess.RevokedAt = timePtr(at)
	}
	return nil
}

func (db *DB) RevokeAccountSessions(_ context.Context, accountID string, at time.Time) (int64, error) {
	t := db.session
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var n int64
	for _, sess := range t.table {
		if sess.AccountID == accountID && sess.RevokedAt == nil {
			sess.RevokedAt = timePtr(at)
			n++
		}
	}
	return n, nil
}

func (db *DB) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	t := db.session
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var n int64
	for id, sess := range t.table {
		if sess.ExpiresAt.Before(before) {
			delete(t.table, id)
			n++
		}
	}
	return n, nil
}
