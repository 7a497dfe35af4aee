package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the server side of a sign-in. Its token is handed to the client as the session artifact.
type Session struct {
	ID        string
	AccountID string
	Role      account.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent string
	IP        string
}

func (s Session) IsLive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// ClientInfo describes where a sign-in comes from.
type ClientInfo struct {
	UserAgent string
	IP        string
}

type SessionRepository interface {
	CreateSession(ctx context.Context, sess Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
	RevokeAccountSessions(ctx context.Context, accountID string, at time.Time) (int64, error)
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// Manager establishes and ends sessions.
type Manager struct {
	repo   SessionRepository
	codec  *TokenCodec
	ttl    time.Duration
	logger core.Logger
}

var _ account.SessionRevoker = (*Manager)(nil)

func NewManager(repo SessionRepository, codec *TokenCodec, ttl time.Duration, logger core.Logger) *Manager {
	return &Manager{repo: repo, codec: codec, ttl: ttl, logger: logger}
}

// TTL is how long established sessions live.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Establish starts a session for acc and returns its signed token.
func (m *Manager) Establish(ctx context.Context, acc account.Account, client ClientInfo) (string, Session, error) {
	if !acc.Role.Valid() {
		return "", Session{}, errors.Errorf("account %s has no valid role", acc.ID)
	}
	now := NowFunc().UTC().Truncate(time.Second)
	sess, err := m.repo.CreateSession(ctx, Session{
		ID:        uuid.NewString(),
		AccountID: acc.ID,
		Role:      acc.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
		UserAgent: client.UserAgent,
		IP:        client.IP,
	})
	if err != nil {
		return "", Session{}, errors.Wrap(err, "creating session")
	}
	token, err := m.codec.Sign(sess)
	if err != nil {
		return "", Session{}, err
	}
	return token, sess, nil
}

// SignOut revokes the session behind state. Anonymous states are a no-op.
func (m *Manager) SignOut(ctx context.Context, state State) error {
	if !state.IsAuthenticated || state.SessionID == "" {
		return nil
	}
	err := m.repo.RevokeSession(ctx, state.SessionID, NowFunc().UTC())
	if err != nil && err != ErrSessionNotFound {
		return errors.Wrap(err, "revoking session")
	}
	return nil
}

func (m *Manager) RevokeAll(ctx context.Context, accountID string) error {
	n, err := m.repo.RevokeAccountSessions(ctx, accountID, NowFunc().UTC())
	if err != nil {
		return errors.Wrap(err, "revoking account sessions")
	}
	m.logger.Debug("sessions revoked", map[string]interface{}{"accountId": accountID, "count": n})
	return nil
}

// PurgeExpired deletes sessions expired for longer than a day.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpiredSessions(ctx, NowFunc().UTC().Add(-24*time.Hour))
	return n, errors.Wrap(err, "deleting expired sessions")
}
