package account

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/credential"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")
)

type (
	Repository interface {
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		// UpdateAccount persists DisplayName, Role and IsActive. PasswordHash is left untouched.
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
		UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
		SetLastLogin(ctx context.Context, id string, at time.Time) error
	}

	// Actor is whoever performs a privileged operation.
	Actor interface {
		IsAdmin() bool
	}

	// SessionRevoker ends every live session of an account.
	SessionRevoker interface {
		RevokeAll(ctx context.Context, accountID string) error
	}

	Deps struct {
		Repo     Repository
		Hasher   credential.Hasher
		Validate *validator.Validate
		Sessions SessionRevoker // optional
		Logger   core.Logger
	}

	Service struct {
		repo     Repository
		hasher   credential.Hasher
		validate *validator.Validate
		sessions SessionRevoker
		logger   core.Logger
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		repo:     deps.Repo,
		hasher:   deps.Hasher,
		validate: deps.Validate,
		sessions: deps.Sessions,
		logger:   deps.Logger,
	}
}

func (svc *Service) checkPassword(pwd string, acc Account) error {
	pc := passwordCandidate{Password: pwd, Email: acc.Email, DisplayName: acc.DisplayName}
	if err := svc.validate.Struct(pc); err != nil {
		return core.NewValidationError(core.CodeInvalidPassword, err)
	}
	return nil
}

// Create validates and stores a new account. An empty password leaves the account without one.
func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Account{}, core.NewValidationError(core.CodeValidationError, err)
	}

	now := NowFunc().UTC()
	acc := Account{
		ID:          uuid.NewString(),
		Email:       na.Email,
		DisplayName: na.DisplayName,
		Role:        na.Role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if na.Password != "" {
		if err := svc.checkPassword(na.Password, acc); err != nil {
			return Account{}, err
		}
		hash, err := svc.hasher.Hash(na.Password)
		if err != nil {
			return Account{}, errors.Wrap(err, "hashing password")
		}
		acc.PasswordHash = hash
	}

	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		if err == ErrEmailExists {
			return Account{}, core.NewValidationError(
				core.CodeValidationError, err, core.FieldError{Field: "email", Error: err.Error()},
			)
		}
		return Account{}, errors.Wrap(err, "creating account")
	}
	return acc, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, core.CleanString(id))
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.NormalizeEmail(email))
}

// ProvisionAdmin returns the admin account for email, creating it on first sign-in.
// An e-mail that already belongs to a student is refused.
func (svc *Service) ProvisionAdmin(ctx context.Context, email string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if acc.Role != RoleAdmin {
			return Account{}, core.NewError(core.KindAuthorization, core.CodeForbidden)
		}
		return acc, nil
	case err != ErrNotFound:
		return Account{}, errors.Wrap(err, "finding account by email")
	}

	acc, err = svc.Create(ctx, NewAccount{Email: email, Role: RoleAdmin})
	if err != nil {
		return Account{}, errors.Wrap(err, "provisioning admin account")
	}
	svc.logger.Info("admin account provisioned", map[string]interface{}{"accountId": acc.ID}, acc)
	return acc, nil
}

// Authenticate checks a student's email & password.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	email = core.NormalizeEmail(email)
	if email == "" || pwd == "" {
		return Account{}, core.NewError(core.KindValidation, core.CodeMissingFields)
	}

	errFailed := core.NewError(core.KindValidation, core.CodeInvalidCredentials)
	acc, err := svc.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return Account{}, errFailed
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if !acc.IsStudent() || !acc.HasPassword() {
		return Account{}, errFailed
	}
	ok, err := svc.hasher.Verify(pwd, acc.PasswordHash)
	if err != nil {
		return Account{}, errors.Wrap(err, "verifying password")
	}
	if !ok {
		return Account{}, errFailed
	}
	if !acc.IsActive {
		return Account{}, core.NewError(core.KindAuthorization, core.CodeAccountDisabled)
	}
	return acc, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, acc Account) (Account, error) {
	now := NowFunc().UTC()
	if err := svc.repo.SetLastLogin(ctx, acc.ID, now); err != nil {
		return Account{}, errors.Wrap(err, "setting last login")
	}
	acc.LastLogin = &now
	return acc, nil
}

// UpdatePassword lets an admin replace a student's password.
// Authorization is checked before anything is read or written.
func (svc *Service) UpdatePassword(ctx context.Context, actor Actor, pu PasswordUpdate) error {
	if actor == nil || !actor.IsAdmin() {
		return core.NewError(core.KindAuthorization, core.CodeForbidden)
	}

	studentID := core.CleanString(pu.StudentID)
	if studentID == "" || strings.TrimSpace(pu.NewPassword) == "" {
		return core.NewError(core.KindValidation, core.CodeMissingFields)
	}

	acc, err := svc.repo.GetAccountByID(ctx, studentID)
	if err != nil {
		if err == ErrNotFound {
			return core.NewError(core.KindNotFound, core.CodeStudentNotFound)
		}
		return errors.Wrap(err, "finding student")
	}
	if !acc.IsStudent() {
		return core.NewError(core.KindNotFound, core.CodeStudentNotFound)
	}

	if err = svc.setPassword(ctx, acc, pu.NewPassword); err != nil {
		return err
	}

	if svc.sessions != nil {
		if err = svc.sessions.RevokeAll(ctx, acc.ID); err != nil {
			svc.logger.Error("revoking student sessions after password update", err, acc)
		}
	}
	return nil
}

// ResetPassword sets the password of the account identified by email. Used by trusted tooling.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return svc.setPassword(ctx, acc, pwd)
}

func (svc *Service) setPassword(ctx context.Context, acc Account, pwd string) error {
	if err := svc.checkPassword(pwd, acc); err != nil {
		return err
	}
	hash, err := svc.hasher.Hash(pwd)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	if err = svc.repo.UpdatePasswordHash(ctx, acc.ID, hash, NowFunc().UTC()); err != nil {
		if err == ErrNotFound {
			return core.NewError(core.KindNotFound, core.CodeStudentNotFound)
		}
		return errors.Wrap(err, "updating password hash")
	}
	return nil
}

// SetActive enables or disables sign-in for an account.
func (svc *Service) SetActive(ctx context.Context, acc Account, active bool) (Account, error) {
	acc.IsActive = active
	acc.UpdatedAt = NowFunc().UTC()
	acc, err := svc.repo.UpdateAccount(ctx, acc)
	if err != nil {
		return Account{}, errors.Wrap(err, "updating account")
	}
	if !active && svc.sessions != nil {
		if err = svc.sessions.RevokeAll(ctx, acc.ID); err != nil {
			return Account{}, errors.Wrap(err, "revoking sessions")
		}
	}
	return acc, nil
}
