package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
)

type (
	apiResponse struct {
		Success   bool              `json:"success"`
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Fields    map[string]string `json:"fields,omitempty"`
		Account   *account.Account  `json:"account,omitempty"`
		Token     string            `json:"token,omitempty"`
		ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
		Redirect  string            `json:"redirect,omitempty"`
		Debug     string            `json:"debug,omitempty"`
	}

	otpRequest struct {
		Email string `json:"email"`
	}

	otpVerifyRequest struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}

	signInRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
)

type authApi struct {
	*Server
}

func registerAuthAPI(g *echo.Group, s *Server) {
	api := authApi{s}

	g.POST("/otp/request", api.requestOTP)
	g.POST("/otp/verify", api.verifyOTP)
	g.POST("/student/sign-in", api.studentSignIn)
	g.POST("/sign-out", api.signOut)
	g.GET("/state", api.state)
	g.POST("/student/update-password", api.updatePassword, adminOnly)
}

func (api authApi) success(ctx echo.Context, code string, res apiResponse) error {
	res.Success = true
	res.Code = code
	res.Message = core.Message(api.deps.Translator, code)
	return ctx.JSON(http.StatusOK, res)
}

func bindError(err error) error {
	return core.NewValidationError(core.CodeValidationError, errors.Wrap(err, "binding request"))
}

// Handlers

func (api authApi) requestOTP(ctx echo.Context) error {
	var data otpRequest
	if err := ctx.Bind(&data); err != nil {
		return bindError(err)
	}
	email := core.NormalizeEmail(data.Email)
	if email != "" && api.deps.Validate.Var(email, "email") != nil {
		return core.NewError(core.KindValidation, core.CodeInvalidEmail)
	}

	issued, err := api.deps.OTPSvc.RequestCode(ctx.Request().Context(), email)
	if err != nil {
		return core.OrInternal(err, core.CodeRequestError)
	}
	return api.success(ctx, core.CodeOTPSent, apiResponse{ExpiresAt: &issued.ExpiresAt})
}

func (api authApi) verifyOTP(ctx echo.Context) error {
	var data otpVerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return bindError(err)
	}
	reqCtx := ctx.Request().Context()

	verified, err := api.deps.OTPSvc.VerifyCode(reqCtx, data.Email, data.Code)
	if err != nil {
		return core.OrInternal(err, core.CodeVerifyError)
	}
	acc, err := api.deps.AccountSvc.ProvisionAdmin(reqCtx, verified.OwnerEmail)
	if err != nil {
		return core.OrInternal(err, core.CodeVerifyError)
	}
	if !acc.IsActive {
		return core.NewError(core.KindAuthorization, core.CodeAccountDisabled)
	}
	return api.signIn(ctx, reqCtx, acc, core.CodeVerifyError)
}

func (api authApi) studentSignIn(ctx echo.Context) error {
	var data signInRequest
	if err := ctx.Bind(&data); err != nil {
		return bindError(err)
	}
	reqCtx := ctx.Request().Context()

	acc, err := api.deps.AccountSvc.Authenticate(reqCtx, data.Email, data.Password)
	if err != nil {
		return core.OrInternal(err, core.CodeSignInError)
	}
	return api.signIn(ctx, reqCtx, acc, core.CodeSignInError)
}

// signIn opens a session for acc, sets the session cookie and points the client to its portal.
func (api authApi) signIn(ctx echo.Context, reqCtx context.Context, acc account.Account, errCode string) error {
	acc, err := api.deps.AccountSvc.SetLastLogin(reqCtx, acc)
	if err != nil {
		return core.OrInternal(err, errCode)
	}
	token, sess, err := api.deps.Sessions.Establish(reqCtx, acc, auth.ClientInfo{
		UserAgent: ctx.Request().UserAgent(),
		IP:        ctx.RealIP(),
	})
	if err != nil {
		return core.OrInternal(err, errCode)
	}

	ctx.SetCookie(api.sessionCookie(token, sess.ExpiresAt))
	api.deps.Logger.Info("signed in", map[string]interface{}{"sessionId": sess.ID}, acc)
	return api.success(ctx, core.CodeSignedIn, apiResponse{
		Account:  &acc,
		Token:    token,
		Redirect: api.paths.Home(acc.Role),
	})
}

func (api authApi) sessionCookie(token string, expires time.Time) *http.Cookie {
	conf := api.deps.Conf.Server
	c := &http.Cookie{
		Name:     conf.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   conf.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	return c
}

// signOut ends the current session. The cookie is cleared even when revocation fails.
func (api authApi) signOut(ctx echo.Context) error {
	state := stateOf(ctx)
	if err := api.deps.Sessions.SignOut(ctx.Request().Context(), state); err != nil {
		args := []interface{}{err, map[string]interface{}{"code": core.CodeSignOutError}}
		if state.Account != nil {
			args = append(args, *state.Account)
		}
		api.deps.Logger.Error("signing out", args...)
	}
	ctx.SetCookie(api.sessionCookie("", time.Time{}))
	return api.success(ctx, core.CodeSignedOut, apiResponse{Redirect: api.paths.SignIn})
}

func (api authApi) state(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, stateOf(ctx))
}

func (api authApi) updatePassword(ctx echo.Context) error {
	var data account.PasswordUpdate
	if err := ctx.Bind(&data); err != nil {
		return bindError(err)
	}
	err := api.deps.AccountSvc.UpdatePassword(ctx.Request().Context(), stateOf(ctx), data)
	if err != nil {
		return core.OrInternal(err, core.CodeUpdateError)
	}
	return api.success(ctx, core.CodePasswordUpdated, apiResponse{})
}
