package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core/otp"
)

type allowListRow struct {
	Email   string    `db:"email"`
	AddedAt time.Time `db:"added_at"`
}

func (s *Store) AllowListContains(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM admin_allowlist WHERE email = $1)`, email)
	return exists, errors.Wrap(err, "querying allow-list")
}

func (s *Store) AddToAllowList(ctx context.Context, entry otp.AllowListEntry) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO admin_allowlist (email, added_at) VALUES (:email, :added_at)`,
		allowListRow{Email: entry.Email, AddedAt: entry.AddedAt},
	)
	if err != nil {
		if isUniqueViolation(err) {
			return otp.ErrAlreadyAllowed
		}
		return errors.Wrap(err, "inserting allow-list entry")
	}
	return nil
}

func (s *Store) RemoveFromAllowList(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_allowlist WHERE email = $1`, email)
	if err != nil {
		return errors.Wrap(err, "deleting allow-list entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return otp.ErrNotAllowed
	}
	return nil
}

func (s *Store) ListAllowList(ctx context.Context) ([]otp.AllowListEntry, error) {
	var rows []allowListRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT email, added_at FROM admin_allowlist ORDER BY email`); err != nil {
		return nil, errors.Wrap(err, "listing allow-list")
	}
	entries := make([]otp.AllowListEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, otp.AllowListEntry{Email: r.Email, AddedAt: r.AddedAt.UTC()})
	}
	return entries, nil
}
