package auth

import (
	"context"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
)

// AccountFinder loads accounts by ID.
type AccountFinder interface {
	GetAccountByID(ctx context.Context, id string) (account.Account, error)
}

// Resolver turns a session token into a State. It never fails: anything wrong yields Anonymous.
type Resolver struct {
	codec    *TokenCodec
	sessions SessionRepository
	accounts AccountFinder
	logger   core.Logger
}

func NewResolver(codec *TokenCodec, sessions SessionRepository, accounts AccountFinder, logger core.Logger) *Resolver {
	return &Resolver{codec: codec, sessions: sessions, accounts: accounts, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, token string) State {
	if token == "" {
		return Anonymous()
	}
	reject := func(reason string, args ...interface{}) State {
		r.logger.Debug("auth state rejected: "+reason, args...)
		return Anonymous()
	}

	claims, err := r.codec.Parse(token)
	if err != nil {
		return reject("token", err)
	}

	sess, err := r.sessions.GetSession(ctx, claims.Id)
	if err != nil {
		if err != ErrSessionNotFound {
			r.logger.Error("loading session", err)
		}
		return reject("session", err)
	}
	if sess.AccountID != claims.Subject || sess.Role != claims.Role {
		return reject("session mismatch")
	}
	if !sess.IsLive(NowFunc()) {
		return reject("session ended")
	}

	acc, err := r.accounts.GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		if err != account.ErrNotFound {
			r.logger.Error("loading session account", err)
		}
		return reject("account", err)
	}
	if !acc.IsActive || acc.Role != sess.Role {
		return reject("account state", acc)
	}

	return State{
		IsAuthenticated: true,
		Account:         &acc,
		Role:            acc.Role,
		SessionID:       sess.ID,
	}
}
