package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/madrasa/core/account"
)

func (db *DB) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	t := db.account
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, a := range t.table {
		if a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	t.table[acc.ID] = &acc
	return acc, nil
}

func (db *DB) GetAccountByID(_ context.Context, id string) (account.Account, error) {
	t := db.account
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if acc, ok := t.table[id]; ok {
		return *acc, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (db *DB) GetAccountByEmail(_ context.Context, email string) (account.Account, error) {
	t := db.account
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for _, acc := range t.table {
		if acc.Email == email {
			return *acc, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (db *DB) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	t := db.account
	t.mutex.Lock()
	defer t.mutex.Unlock()

	orig, ok := t.table[acc.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	orig.DisplayName = acc.DisplayName
	orig.Role = acc.Role
	orig.IsActive = acc.IsActive
	orig.UpdatedAt = acc.UpdatedAt
	return *orig, nil
}

func (db *DB) UpdatePasswordHash(_ context.Context, id, hash string, at time.Time) error {
	t := db.account
	t.mutex.Lock()
	defer t.mutex.Unlock()

	acc, ok := t.table[id]
	if !ok {
		return account.ErrNotFound
	}
	acc.PasswordHash = hash
	acc.UpdatedAt = at
	return nil
}

func (db *DB) SetLastLogin(_ context.Context, id string, at time.Time) error {
	t := db.account
	t.mutex.Lock()
	defer t.mutex.Unlock()

	acc, ok := t.table[id]
	if !ok {
		return account.ErrNotFound
	}
	acc.LastLogin = timePtr(at)
	return nil
}
