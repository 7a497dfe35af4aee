package otp

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

var (
	ErrAlreadyAllowed = errors.New("email already allow-listed")
	ErrNotAllowed     = errors.New("email not allow-listed")
)

type (
	// AllowList decides which e-mails may request a code. Implementations fail closed.
	AllowList interface {
		Contains(ctx context.Context, email string) (bool, error)
	}

	AllowListRepository interface {
		AllowListContains(ctx context.Context, email string) (bool, error)
		AddToAllowList(ctx context.Context, entry AllowListEntry) error
		RemoveFromAllowList(ctx context.Context, email string) error
		ListAllowList(ctx context.Context) ([]AllowListEntry, error)
	}

	staticAllowList map[string]struct{}

	storeAllowList struct {
		static staticAllowList
		repo   AllowListRepository
	}
)

var (
	_ AllowList = (staticAllowList)(nil)
	_ AllowList = (*storeAllowList)(nil)
)

// NewStaticAllowList returns an AllowList of fixed e-mails.
func NewStaticAllowList(emails ...string) AllowList {
	return newStatic(emails)
}

func newStatic(emails []string) staticAllowList {
	al := make(staticAllowList, len(emails))
	for _, e := range emails {
		if e = core.NormalizeEmail(e); e != "" {
			al[e] = struct{}{}
		}
	}
	return al
}

func (al staticAllowList) Contains(_ context.Context, email string) (bool, error) {
	_, ok := al[core.NormalizeEmail(email)]
	return ok, nil
}

// NewAllowList returns the union of the configured e-mails and the ones managed in repo.
func NewAllowList(static []string, repo AllowListRepository) AllowList {
	return &storeAllowList{static: newStatic(static), repo: repo}
}

func (al *storeAllowList) Contains(ctx context.Context, email string) (bool, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	if ok, _ := al.static.Contains(ctx, email); ok {
		return true, nil
	}
	ok, err := al.repo.AllowListContains(ctx, email)
	if err != nil {
		return false, errors.Wrap(err, "querying allow-list")
	}
	return ok, nil
}

// AllowListManager edits the store-managed part of the allow-list.
type AllowListManager struct {
	repo AllowListRepository
}

func NewAllowListManager(repo AllowListRepository) *AllowListManager {
	return &AllowListManager{repo: repo}
}

func (m *AllowListManager) Add(ctx context.Context, email string) (AllowListEntry, error) {
	entry := AllowListEntry{Email: core.NormalizeEmail(email), AddedAt: NowFunc().UTC()}
	if entry.Email == "" {
		return AllowListEntry{}, core.NewError(core.KindValidation, core.CodeMissingEmail)
	}
	if err := m.repo.AddToAllowList(ctx, entry); err != nil {
		return AllowListEntry{}, err
	}
	return entry, nil
}

func (m *AllowListManager) Remove(ctx context.Context, email string) error {
	return m.repo.RemoveFromAllowList(ctx, core.NormalizeEmail(email))
}

func (m *AllowListManager) List(ctx context.Context) ([]AllowListEntry, error) {
	return m.repo.ListAllowList(ctx)
}
