package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
)

type sessionRow struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	Role      int       `db:"role"`
	IssuedAt  time.Time `db:"issued_at"`
	ExpiresAt time.Time `db:"expires_at"`
	RevokedAt null.Time `db:"revoked_at"`
	UserAgent string    `db:"user_agent"`
	IP        string    `db:"ip"`
}

const sessionColumns = `id, account_id, role, issued_at, expires_at, revoked_at, user_agent, ip`

func (s *Store) CreateSession(ctx context.Context, sess auth.Session) (auth.Session, error) {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (:id, :account_id, :role, :issued_at, :expires_at, :revoked_at, :user_agent, :ip)`,
		sessionRow{
			ID:        sess.ID,
			AccountID: sess.AccountID,
			Role:      int(sess.Role),
			IssuedAt:  sess.IssuedAt,
			ExpiresAt: sess.ExpiresAt,
			RevokedAt: null.TimeFromPtr(sess.RevokedAt),
			UserAgent: sess.UserAgent,
			IP:        sess.IP,
		},
	)
	if err != nil {
		return auth.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (auth.Session, error) {
	var row sessionRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, errors.Wrap(err, "selecting session")
	}
	return auth.Session{
		ID:        row.ID,
		AccountID: row.AccountID,
		Role:      account.Role(row.Role),
		IssuedAt:  row.IssuedAt.UTC(),
		ExpiresAt: row.ExpiresAt.UTC(),
		RevokedAt: utcPtr(row.RevokedAt),
		UserAgent: row.UserAgent,
		IP:        row.IP,
	}, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked_at = COALESCE(revoked_at, $2) WHERE id = $1`, id, at)
	if err != nil {
		return errors.Wrap(err, "revoking session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

func (s *Store) RevokeAccountSessions(ctx context.Context, accountID string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE account_id = $1 AND revoked_at IS NULL`, accountID, at,
	)
	if err != nil {
		return 0, errors.Wrap(err, "revoking account sessions")
	}
	return res.RowsAffected()
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired sessions")
	}
	return res.RowsAffected()
}
