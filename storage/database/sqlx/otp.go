package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/madrasa/core/otp"
)

type codeRow struct {
	ID         string    `db:"id"`
	OwnerEmail string    `db:"owner_email"`
	CodeHash   string    `db:"code_hash"`
	IssuedAt   time.Time `db:"issued_at"`
	ExpiresAt  time.Time `db:"expires_at"`
	ConsumedAt null.Time `db:"consumed_at"`
	RevokedAt  null.Time `db:"revoked_at"`
	Attempts   int       `db:"attempts"`
}

func (r codeRow) toCode() otp.Code {
	return otp.Code{
		ID:         r.ID,
		OwnerEmail: r.OwnerEmail,
		CodeHash:   r.CodeHash,
		IssuedAt:   r.IssuedAt.UTC(),
		ExpiresAt:  r.ExpiresAt.UTC(),
		ConsumedAt: utcPtr(r.ConsumedAt),
		RevokedAt:  utcPtr(r.RevokedAt),
		Attempts:   r.Attempts,
	}
}

const (
	codeColumns = `id, owner_email, code_hash, issued_at, expires_at, consumed_at, revoked_at, attempts`
	usable      = `consumed_at IS NULL AND revoked_at IS NULL`
)

func (s *Store) CreateCode(ctx context.Context, code otp.Code) (otp.Code, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE otp_codes SET revoked_at = $2 WHERE owner_email = $1 AND `+usable,
			code.OwnerEmail, code.IssuedAt,
		); err != nil {
			return errors.Wrap(err, "revoking previous codes")
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO otp_codes (`+codeColumns+`)
			VALUES (:id, :owner_email, :code_hash, :issued_at, :expires_at, :consumed_at, :revoked_at, :attempts)`,
			codeRow{
				ID:         code.ID,
				OwnerEmail: code.OwnerEmail,
				CodeHash:   code.CodeHash,
				IssuedAt:   code.IssuedAt,
				ExpiresAt:  code.ExpiresAt,
				ConsumedAt: null.TimeFromPtr(code.ConsumedAt),
				RevokedAt:  null.TimeFromPtr(code.RevokedAt),
				Attempts:   code.Attempts,
			},
		)
		return errors.Wrap(err, "inserting code")
	})
	if err != nil {
		return otp.Code{}, err
	}
	return code, nil
}

func (s *Store) newestCode(ctx context.Context, owner, filter string) (otp.Code, error) {
	var row codeRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+codeColumns+` FROM otp_codes WHERE owner_email = $1`+filter+` ORDER BY issued_at DESC LIMIT 1`,
		owner,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return otp.Code{}, otp.ErrNotFound
		}
		return otp.Code{}, errors.Wrap(err, "selecting code")
	}
	return row.toCode(), nil
}

func (s *Store) LatestCode(ctx context.Context, owner string) (otp.Code, error) {
	return s.newestCode(ctx, owner, "")
}

func (s *Store) ActiveCode(ctx context.Context, owner string) (otp.Code, error) {
	return s.newestCode(ctx, owner, " AND "+usable)
}

// ConsumeCode relies on the row lock taken by UPDATE: of concurrent calls only one still sees the code usable.
func (s *Store) ConsumeCode(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE otp_codes SET consumed_at = $2 WHERE id = $1 AND `+usable, id, at)
	if err != nil {
		return false, errors.Wrap(err, "consuming code")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "consuming code")
	}
	return n == 1, nil
}

func (s *Store) RegisterCodeFailure(ctx context.Context, id string, maxAttempts int, at time.Time) (int, error) {
	var attempts int
	err := s.db.GetContext(ctx, &attempts, `
		UPDATE otp_codes
		SET attempts = attempts + 1,
		    revoked_at = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE revoked_at END
		WHERE id = $1 AND `+usable+`
		RETURNING attempts`,
		id, maxAttempts, at,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, otp.ErrNotFound
		}
		return 0, errors.Wrap(err, "registering code failure")
	}
	return attempts, nil
}

func (s *Store) DeleteExpiredCodes(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE expires_at < $1`, before)
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired codes")
	}
	return res.RowsAffected()
}
