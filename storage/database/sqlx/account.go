package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/madrasa/core/account"
)

type accountRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	DisplayName  string    `db:"display_name"`
	Role         int       `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r accountRow) toAccount() account.Account {
	return account.Account{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		Role:         account.Role(r.Role),
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    utcPtr(r.LastLogin),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

const accountColumns = `id, email, display_name, role, is_active, password_hash, created_at, updated_at, last_login`

func (s *Store) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	row := accountRow{
		ID:           acc.ID,
		Email:        acc.Email,
		DisplayName:  acc.DisplayName,
		Role:         int(acc.Role),
		IsActive:     acc.IsActive,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt,
		UpdatedAt:    acc.UpdatedAt,
		LastLogin:    null.TimeFromPtr(acc.LastLogin),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (:id, :email, :display_name, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`,
		row,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (s *Store) getAccount(ctx context.Context, where string, arg interface{}) (account.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "selecting account")
	}
	return row.toAccount(), nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	return s.getAccount(ctx, "id = $1", id)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return s.getAccount(ctx, "email = $1", email)
}

func (s *Store) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE accounts SET display_name = $2, role = $3, is_active = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+accountColumns,
		acc.ID, acc.DisplayName, int(acc.Role), acc.IsActive, acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	return row.toAccount(), nil
}

// execOne runs an update expected to touch exactly one account.
func (s *Store) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return s.execOne(ctx, `UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
}

func (s *Store) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, `UPDATE accounts SET last_login = $2 WHERE id = $1`, id, at)
}
