// Package otp issues and verifies one-time sign-in codes for allow-listed admin e-mails.
package otp

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

var (
	NowFunc      = time.Now // mockable
	generateFunc = Generate // mockable

	// errors
	ErrNotFound = errors.New("otp code not found")
)

type (
	Repository interface {
		// CreateCode stores code and revokes every other usable code of the same owner.
		CreateCode(ctx context.Context, code Code) (Code, error)
		// LatestCode returns the most recently issued code of owner, whatever its state.
		LatestCode(ctx context.Context, owner string) (Code, error)
		// ActiveCode returns the most recently issued usable code of owner.
		ActiveCode(ctx context.Context, owner string) (Code, error)
		// ConsumeCode marks a usable code consumed. It reports false when the code was no longer usable;
		// of concurrent calls for one code, exactly one gets true.
		ConsumeCode(ctx context.Context, id string, at time.Time) (bool, error)
		// RegisterCodeFailure increments the attempts of a usable code and revokes it once maxAttempts is reached.
		RegisterCodeFailure(ctx context.Context, id string, maxAttempts int, at time.Time) (int, error)
		DeleteExpiredCodes(ctx context.Context, before time.Time) (int64, error)
	}

	Config struct {
		Length       int
		Alphanumeric bool
		TTL          time.Duration
		Cooldown     time.Duration
		MaxAttempts  int
		Secret       []byte
	}

	Deps struct {
		Repo      Repository
		AllowList AllowList
		MailSvc   core.EmailService
		Logger    core.Logger
	}

	Service struct {
		repo    Repository
		allow   AllowList
		mailSvc core.EmailService
		logger  core.Logger
		conf    Config
	}
)

// DefaultConfig returns the default code policy: 6 digits, valid 5 minutes, one request per minute, 5 attempts.
func DefaultConfig() Config {
	return Config{
		Length:      6,
		TTL:         5 * time.Minute,
		Cooldown:    60 * time.Second,
		MaxAttempts: 5,
	}
}

// NewConfig builds the code policy from the application config.
func NewConfig(conf *core.Config) Config {
	c := DefaultConfig()
	if conf.OTP.Length > 0 {
		c.Length = conf.OTP.Length
	}
	if conf.OTP.TTL > 0 {
		c.TTL = conf.OTP.TTL
	}
	if conf.OTP.Cooldown >= 0 {
		c.Cooldown = conf.OTP.Cooldown
	}
	if conf.OTP.MaxAttempts > 0 {
		c.MaxAttempts = conf.OTP.MaxAttempts
	}
	c.Alphanumeric = conf.OTP.Alphanumeric
	c.Secret = []byte(conf.SecretKey)
	return c
}

func NewService(deps Deps, conf Config) *Service {
	return &Service{
		repo:    deps.Repo,
		allow:   deps.AllowList,
		mailSvc: deps.MailSvc,
		logger:  deps.Logger,
		conf:    conf,
	}
}

// RequestCode issues a code for email and sends it by mail.
// Nothing is stored for e-mails outside the allow-list.
func (svc *Service) RequestCode(ctx context.Context, email string) (Issued, error) {
	owner := core.NormalizeEmail(email)
	if owner == "" {
		return Issued{}, core.NewError(core.KindValidation, core.CodeMissingEmail)
	}

	allowed, err := svc.allow.Contains(ctx, owner)
	if err != nil {
		return Issued{}, errors.Wrap(err, "checking allow-list")
	}
	if !allowed {
		return Issued{}, core.NewError(core.KindAuthorization, core.CodeUnauthorized)
	}

	now := NowFunc().UTC()
	latest, err := svc.repo.LatestCode(ctx, owner)
	switch {
	case err == nil:
		elapsed := now.Sub(latest.IssuedAt)
		if elapsed < svc.conf.Cooldown && !latest.IsExpired(now) {
			return Issued{}, core.NewRateLimitError(core.CodeRateLimited, svc.conf.Cooldown-elapsed)
		}
	case err != ErrNotFound:
		return Issued{}, errors.Wrap(err, "finding latest code")
	}

	plain, err := generateFunc(svc.conf.Length, svc.conf.Alphanumeric)
	if err != nil {
		return Issued{}, errors.Wrap(err, "generating code")
	}
	code, err := svc.repo.CreateCode(ctx, Code{
		ID:         uuid.NewString(),
		OwnerEmail: owner,
		CodeHash:   hashCode(svc.conf.Secret, owner, plain),
		IssuedAt:   now,
		ExpiresAt:  now.Add(svc.conf.TTL),
	})
	if err != nil {
		return Issued{}, errors.Wrap(err, "storing code")
	}

	svc.sendCode(owner, plain)
	return Issued{OwnerEmail: owner, ExpiresAt: code.ExpiresAt}, nil
}

func (svc *Service) sendCode(owner, plain string) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: owner}},
		Subject:      "رمز التحقق لتسجيل الدخول",
		TemplateName: "otp_code",
		TemplateData: struct {
			Code       string
			TTLMinutes int
		}{
			Code:       plain,
			TTLMinutes: int(svc.conf.TTL / time.Minute),
		},
	}
	svc.mailSvc.SendMessages(msg)
}

// VerifyCode consumes the active code of email when code matches it.
func (svc *Service) VerifyCode(ctx context.Context, email, code string) (Verified, error) {
	owner := core.NormalizeEmail(email)
	if owner == "" || normalizeCode(code) == "" {
		return Verified{}, core.NewError(core.KindValidation, core.CodeMissingFields)
	}

	active, err := svc.repo.ActiveCode(ctx, owner)
	if err != nil {
		if err == ErrNotFound {
			return Verified{}, core.NewError(core.KindNotFound, core.CodeNotFound)
		}
		return Verified{}, errors.Wrap(err, "finding active code")
	}

	now := NowFunc().UTC()
	if active.IsExpired(now) {
		return Verified{}, core.NewError(core.KindAuthentication, core.CodeExpired)
	}

	if !codeMatches(svc.conf.Secret, owner, code, active.CodeHash) {
		attempts, err := svc.repo.RegisterCodeFailure(ctx, active.ID, svc.conf.MaxAttempts, now)
		if err != nil && err != ErrNotFound {
			return Verified{}, errors.Wrap(err, "registering failed attempt")
		}
		if attempts >= svc.conf.MaxAttempts {
			svc.logger.Warn("otp code revoked after too many attempts", map[string]interface{}{"email": owner})
		}
		return Verified{}, core.NewError(core.KindAuthentication, core.CodeInvalidCode)
	}

	ok, err := svc.repo.ConsumeCode(ctx, active.ID, now)
	if err != nil {
		return Verified{}, errors.Wrap(err, "consuming code")
	}
	if !ok { // lost a race against another verification
		return Verified{}, core.NewError(core.KindNotFound, core.CodeNotFound)
	}
	return Verified{OwnerEmail: owner, CodeID: active.ID}, nil
}

// PurgeExpired deletes codes expired for longer than a day.
func (svc *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := svc.repo.DeleteExpiredCodes(ctx, NowFunc().UTC().Add(-24*time.Hour))
	return n, errors.Wrap(err, "deleting expired codes")
}
