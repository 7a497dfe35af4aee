package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/madrasa/core/otp"
)

func (db *DB) AllowListContains(_ context.Context, email string) (bool, error) {
	t := db.allowList
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	_, ok := t.table[email]
	return ok, nil
}

func (db *DB) AddToAllowList(_ context.Context, entry otp.AllowListEntry) error {
	t := db.allowList
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.table[entry.Email]; ok {
		return otp.ErrAlreadyAllowed
	}
	t.table[entry.Email] = entry
	return nil
}

func (db *DB) RemoveFromAllowList(_ context.Context, email string) error {
	t := db.allowList
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.table[email]; !ok {
		return otp.ErrNotAllowed
	}
	delete(t.table, email)
	return nil
}

func (db *DB) ListAllowList(_ context.Context) ([]otp.AllowListEntry, error) {
	t := db.allowList
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	entries := make([]otp.AllowListEntry, 0, len(t.table))
	for _, e := range t.table {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Email < entries[j].Email })
	return entries, nil
}
