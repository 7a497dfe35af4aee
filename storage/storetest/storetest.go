// Package storetest checks that a storage.Store behaves the way the services expect.
// Every backend runs the same suite.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/otp"
	"github.com/trezcool/madrasa/storage"
)

// now is truncated to the coarsest precision of the backends (mongodb keeps milliseconds).
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// Run runs the suite; newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("codes", func(t *testing.T) { testCodes(t, newStore(t)) })
	t.Run("concurrent consume", func(t *testing.T) { testConcurrentConsume(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("allow-list", func(t *testing.T) { testAllowList(t, newStore(t)) })
}

func newAccount(email string, role account.Role) account.Account {
	ts := now()
	return account.Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  "Test",
		Role:         role,
		IsActive:     true,
		PasswordHash: "hash",
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

func testAccounts(t *testing.T, store storage.Store) {
	ctx := context.Background()

	acc, err := store.CreateAccount(ctx, newAccount("salma@example.com", account.RoleStudent))
	require.NoError(t, err)

	_, err = store.CreateAccount(ctx, newAccount("salma@example.com", account.RoleStudent))
	assert.Equal(t, account.ErrEmailExists, err)

	got, err := store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.Email, got.Email)
	assert.Equal(t, account.RoleStudent, got.Role)
	assert.Nil(t, got.LastLogin)

	got, err = store.GetAccountByEmail(ctx, "salma@example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	_, err = store.GetAccountByID(ctx, "missing")
	assert.Equal(t, account.ErrNotFound, err)
	_, err = store.GetAccountByEmail(ctx, "missing@example.com")
	assert.Equal(t, account.ErrNotFound, err)

	acc.DisplayName = "Salma"
	acc.IsActive = false
	acc.PasswordHash = "ignored"
	updated, err := store.UpdateAccount(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, "Salma", updated.DisplayName)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "hash", updated.PasswordHash, "UpdateAccount leaves the hash alone")

	at := now()
	require.NoError(t, store.UpdatePasswordHash(ctx, acc.ID, "new-hash", at))
	require.NoError(t, store.SetLastLogin(ctx, acc.ID, at))
	got, err = store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	require.NotNil(t, got.LastLogin)
	assert.WithinDuration(t, at, *got.LastLogin, time.Millisecond)

	assert.Equal(t, account.ErrNotFound, store.UpdatePasswordHash(ctx, "missing", "x", at))
	assert.Equal(t, account.ErrNotFound, store.SetLastLogin(ctx, "missing", at))
	_, err = store.UpdateAccount(ctx, account.Account{ID: "missing", Role: account.RoleStudent})
	assert.Equal(t, account.ErrNotFound, err)
}

func newCode(owner string, issuedAt time.Time) otp.Code {
	return otp.Code{
		ID:         uuid.NewString(),
		OwnerEmail: owner,
		CodeHash:   "h-" + uuid.NewString(),
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(5 * time.Minute),
	}
}

func testCodes(t *testing.T, store storage.Store) {
	ctx := context.Background()
	owner := "admin@example.com"
	t0 := now().Add(-10 * time.Minute)

	_, err := store.LatestCode(ctx, owner)
	assert.Equal(t, otp.ErrNotFound, err)
	_, err = store.ActiveCode(ctx, owner)
	assert.Equal(t, otp.ErrNotFound, err)

	first, err := store.CreateCode(ctx, newCode(owner, t0))
	require.NoError(t, err)
	second, err := store.CreateCode(ctx, newCode(owner, t0.Add(time.Minute)))
	require.NoError(t, err)

	active, err := store.ActiveCode(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID, "a new code supersedes the previous one")
	assert.Equal(t, second.CodeHash, active.CodeHash)

	ok, err := store.ConsumeCode(ctx, first.ID, now())
	require.NoError(t, err)
	assert.False(t, ok, "superseded codes cannot be consumed")

	attempts, err := store.RegisterCodeFailure(ctx, second.ID, 2, now())
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	attempts, err = store.RegisterCodeFailure(ctx, second.ID, 2, now())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	_, err = store.ActiveCode(ctx, owner)
	assert.Equal(t, otp.ErrNotFound, err, "reaching max attempts revokes the code")
	_, err = store.RegisterCodeFailure(ctx, second.ID, 2, now())
	assert.Equal(t, otp.ErrNotFound, err)

	latest, err := store.LatestCode(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.NotNil(t, latest.RevokedAt)
	assert.Equal(t, 2, latest.Attempts)

	third, err := store.CreateCode(ctx, newCode(owner, t0.Add(2*time.Minute)))
	require.NoError(t, err)
	ok, err = store.ConsumeCode(ctx, third.ID, now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.ConsumeCode(ctx, third.ID, now())
	require.NoError(t, err)
	assert.False(t, ok, "a code is consumed once")

	n, err := store.DeleteExpiredCodes(ctx, t0.Add(6*time.Minute+30*time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	latest, err = store.LatestCode(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, third.ID, latest.ID)
}

func testConcurrentConsume(t *testing.T, store storage.Store) {
	ctx := context.Background()
	code, err := store.CreateCode(ctx, newCode("admin@example.com", now()))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.ConsumeCode(ctx, code.ID, now())
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, successes)
}

func testSessions(t *testing.T, store storage.Store) {
	ctx := context.Background()
	acc, err := store.CreateAccount(ctx, newAccount("omar@example.com", account.RoleStudent))
	require.NoError(t, err)

	issued := now()
	newSession := func(expires time.Time) auth.Session {
		sess, err := store.CreateSession(ctx, auth.Session{
			ID:        uuid.NewString(),
			AccountID: acc.ID,
			Role:      acc.Role,
			IssuedAt:  issued,
			ExpiresAt: expires,
			UserAgent: "go-test",
			IP:        "127.0.0.1",
		})
		require.NoError(t, err)
		return sess
	}
	s1 := newSession(issued.Add(time.Hour))
	s2 := newSession(issued.Add(time.Hour))
	s3 := newSession(issued.Add(2 * time.Hour))

	got, err := store.GetSession(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.AccountID)
	assert.Equal(t, account.RoleStudent, got.Role)
	assert.Equal(t, "go-test", got.UserAgent)
	assert.WithinDuration(t, s1.ExpiresAt, got.ExpiresAt, time.Millisecond)
	assert.True(t, got.IsLive(issued))

	_, err = store.GetSession(ctx, "missing")
	assert.Equal(t, auth.ErrSessionNotFound, err)

	revokedAt := now()
	require.NoError(t, store.RevokeSession(ctx, s1.ID, revokedAt))
	require.NoError(t, store.RevokeSession(ctx, s1.ID, revokedAt.Add(time.Minute)))
	got, err = store.GetSession(ctx, s1.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)
	assert.WithinDuration(t, revokedAt, *got.RevokedAt, time.Millisecond, "the first revocation is kept")
	assert.Equal(t, auth.ErrSessionNotFound, store.RevokeSession(ctx, "missing", revokedAt))

	n, err := store.RevokeAccountSessions(ctx, acc.ID, now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	got, err = store.GetSession(ctx, s2.ID)
	require.NoError(t, err)
	assert.False(t, got.IsLive(issued))

	n, err = store.DeleteExpiredSessions(ctx, issued.Add(90*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, err = store.GetSession(ctx, s3.ID)
	assert.NoError(t, err)
}

func testAllowList(t *testing.T, store storage.Store) {
	ctx := context.Background()

	ok, err := store.AllowListContains(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AddToAllowList(ctx, otp.AllowListEntry{Email: "b@example.com", AddedAt: now()}))
	require.NoError(t, store.AddToAllowList(ctx, otp.AllowListEntry{Email: "a@example.com", AddedAt: now()}))
	assert.Equal(t, otp.ErrAlreadyAllowed, store.AddToAllowList(ctx, otp.AllowListEntry{Email: "a@example.com", AddedAt: now()}))

	ok, err = store.AllowListContains(ctx, "b@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := store.ListAllowList(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a@example.com", entries[0].Email)
	assert.Equal(t, "b@example.com", entries[1].Email)

	require.NoError(t, store.RemoveFromAllowList(ctx, "b@example.com"))
	assert.Equal(t, otp.ErrNotAllowed, store.RemoveFromAllowList(ctx, "b@example.com"))
	ok, err = store.AllowListContains(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
