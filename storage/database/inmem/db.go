// Package inmemdb keeps every table in process memory. Used for tests and local development.
package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/otp"
)

type (
	accountTable struct {
		mutex sync.RWMutex
		table map[string]*account.Account
	}

	codeTable struct {
		mutex sync.Mutex
		table map[string]*otp.Code
	}

	sessionTable struct {
		mutex sync.RWMutex
		table map[string]*auth.Session
	}

	allowListTable struct {
		mutex sync.RWMutex
		table map[string]otp.AllowListEntry
	}

	// DB implements every repository of the application.
	DB struct {
		account   *accountTable
		code      *codeTable
		session   *sessionTable
		allowList *allowListTable
	}
)

var (
	_ account.Repository      = (*DB)(nil)
	_ otp.Repository          = (*DB)(nil)
	_ otp.AllowListRepository = (*DB)(nil)
	_ auth.SessionRepository  = (*DB)(nil)
)

func NewDB() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.account = &accountTable{table: make(map[string]*account.Account)}
	db.code = &codeTable{table: make(map[string]*otp.Code)}
	db.session = &sessionTable{table: make(map[string]*auth.Session)}
	db.allowList = &allowListTable{table: make(map[string]otp.AllowListEntry)}
}

func (db *DB) Close(context.Context) error { return nil }

func timePtr(t time.Time) *time.Time { return &t }
