// Package sqlxrepos implements the repositories on PostgreSQL.
package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/otp"
)

const uniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
}

var (
	_ account.Repository      = (*Store)(nil)
	_ otp.Repository          = (*Store)(nil)
	_ otp.AllowListRepository = (*Store)(nil)
	_ auth.SessionRepository  = (*Store)(nil)
)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close(context.Context) error { return s.db.Close() }

// DB exposes the connection for schema migrations.
func (s *Store) DB() *sqlx.DB { return s.db }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// withTx runs fn in a transaction, committed when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
