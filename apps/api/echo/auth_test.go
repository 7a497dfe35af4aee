package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/otp"
	inmemdb "github.com/trezcool/madrasa/storage/database/inmem"
	"github.com/trezcool/madrasa/testutil"
)

func Test_authApi_requestOTP(t *testing.T) {
	app := setup(t)
	path := "/auth/otp/request"

	tests := []httpTest{
		{
			name:     "missing email",
			body:     marchallObj(t, otpRequest{Email: "  "}),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeMissingEmail),
		},
		{
			name:     "empty body",
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeMissingEmail),
		},
		{
			name:     "invalid email",
			body:     marchallObj(t, otpRequest{Email: "admin-at-example"}),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeInvalidEmail),
		},
		{
			name:     "malformed json",
			body:     []byte(`{"email":`),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeValidationError),
		},
		{
			name:     "not allow-listed",
			body:     marchallObj(t, otpRequest{Email: "salma@example.com"}),
			wantCode: http.StatusForbidden,
			wantData: errBody(t, core.CodeUnauthorized),
		},
		{
			name:     "sent",
			body:     marchallObj(t, otpRequest{Email: "Admin@Example.com"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "cooldown",
			body:     marchallObj(t, otpRequest{Email: "admin@example.com"}),
			wantCode: http.StatusTooManyRequests,
			wantData: errBody(t, core.CodeRateLimited),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(http.MethodPost, path, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}

	sent := app.mail.SentMessages()
	require.Len(t, sent, 1, "only the allow-listed request mails a code")
	assert.Equal(t, "admin@example.com", sent[0].To[0].Address)

	_, err := app.db.LatestCode(context.Background(), "salma@example.com")
	assert.Equal(t, otp.ErrNotFound, err, "no code stored for e-mails outside the allow-list")

	rec := app.do(newRequest(http.MethodPost, path, marchallObj(t, otpRequest{Email: "admin@example.com"})))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func Test_authApi_requestOTP_storeFailure(t *testing.T) {
	app := setupWithRepo(t, func(db *inmemdb.DB) repo { return brokenCodes{db} })
	rec := app.do(newRequest(http.MethodPost, "/auth/otp/request", marchallObj(t, otpRequest{Email: "admin@example.com"})))
	checkCodeAndData(t, httpTest{wantCode: http.StatusInternalServerError, wantData: errBody(t, core.CodeRequestError)}, rec)
	assert.True(t, app.logger.Has("ERROR", http.StatusText(http.StatusInternalServerError)))
}

func Test_authApi_verifyOTP(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	rec := app.do(newRequest(http.MethodPost, "/auth/otp/request", marchallObj(t, otpRequest{Email: "admin@example.com"})))
	require.Equal(t, http.StatusOK, rec.Code)
	code := app.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	path := "/auth/otp/verify"

	tests := []httpTest{
		{
			name:     "missing fields",
			body:     marchallObj(t, otpVerifyRequest{Email: "admin@example.com"}),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeMissingFields),
		},
		{
			name:     "wrong code",
			body:     marchallObj(t, otpVerifyRequest{Email: "admin@example.com", Code: wrong}),
			wantCode: http.StatusUnauthorized,
			wantData: errBody(t, core.CodeInvalidCode),
		},
		{
			name:     "right code",
			body:     marchallObj(t, otpVerifyRequest{Email: "admin@example.com", Code: code}),
			wantCode: http.StatusOK,
		},
		{
			name:     "code reused",
			body:     marchallObj(t, otpVerifyRequest{Email: "admin@example.com", Code: code}),
			wantCode: http.StatusNotFound,
			wantData: errBody(t, core.CodeNotFound),
		},
	}
	var signedIn apiResponse
	var cookieToken string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(http.MethodPost, path, tt.body))
			checkCodeAndData(t, tt, rec)
			if rec.Code == http.StatusOK {
				signedIn = decode(t, rec)
				c := sessionCookieOf(t, app, rec)
				assert.True(t, c.HttpOnly)
				withinTTL(t, app, c.Expires)
				cookieToken = c.Value
			}
		})
	}

	assert.True(t, signedIn.Success)
	assert.Equal(t, core.CodeSignedIn, signedIn.Code)
	assert.Equal(t, "/admin", signedIn.Redirect)
	require.NotNil(t, signedIn.Account)
	assert.Equal(t, app.admin.ID, signedIn.Account.ID)
	assert.Equal(t, signedIn.Token, cookieToken)

	acc, err := app.db.GetAccountByID(ctx, app.admin.ID)
	require.NoError(t, err)
	assert.NotNil(t, acc.LastLogin)

	req, rec := newRequest(http.MethodGet, "/admin")
	req.AddCookie(&http.Cookie{Name: app.conf.Server.CookieName, Value: cookieToken})
	assert.Equal(t, http.StatusOK, app.do(req, rec).Code)
}

func Test_authApi_verifyOTP_provisionsAdmin(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	_, err := otp.NewAllowListManager(app.db).Add(ctx, "dean@example.com")
	require.NoError(t, err)

	app.do(newRequest(http.MethodPost, "/auth/otp/request", marchallObj(t, otpRequest{Email: "dean@example.com"})))
	rec := app.do(newRequest(http.MethodPost, "/auth/otp/verify", marchallObj(t, otpVerifyRequest{Email: "dean@example.com", Code: app.lastCode(t)})))
	require.Equal(t, http.StatusOK, rec.Code)

	acc, err := app.db.GetAccountByEmail(ctx, "dean@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, acc.Role)
	assert.False(t, acc.HasPassword())
}

func Test_authApi_studentSignIn(t *testing.T) {
	app := setup(t)
	path := "/auth/student/sign-in"
	testutil.CreateAccount(t, app.db, "layla@example.com", "ليلى", "qalam-2024", account.RoleStudent, false)

	tests := []httpTest{
		{
			name:     "missing fields",
			body:     marchallObj(t, signInRequest{Email: "salma@example.com"}),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeMissingFields),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, signInRequest{Email: "salma@example.com", Password: "qalam-2025"}),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeInvalidCredentials),
		},
		{
			name:     "admins cannot use passwords",
			body:     marchallObj(t, signInRequest{Email: "admin@example.com", Password: "anything"}),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeInvalidCredentials),
		},
		{
			name:     "disabled",
			body:     marchallObj(t, signInRequest{Email: "layla@example.com", Password: "qalam-2024"}),
			wantCode: http.StatusForbidden,
			wantData: errBody(t, core.CodeAccountDisabled),
		},
		{
			name:     "signed in",
			body:     marchallObj(t, signInRequest{Email: "salma@example.com", Password: "qalam-2024"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(http.MethodPost, path, tt.body))
			checkCodeAndData(t, tt, rec)
			if rec.Code == http.StatusOK {
				res := decode(t, rec)
				assert.Equal(t, "/student", res.Redirect)
				assert.Equal(t, sessionCookieOf(t, app, rec).Value, res.Token)
			}
		})
	}
}

func Test_authApi_signOut(t *testing.T) {
	app := setup(t)
	token := app.getToken(t, app.student)

	rec := app.do(newAuthRequest(http.MethodPost, "/auth/sign-out", token))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: okBody(t, core.CodeSignedOut, apiResponse{Redirect: "/sign-in"}),
	}, rec)
	assert.True(t, sessionCookieOf(t, app, rec).MaxAge < 0, "cookie cleared")

	rec = app.do(newAuthRequest(http.MethodGet, "/student", token))
	assert.Equal(t, http.StatusFound, rec.Code, "the session is revoked server side")

	rec = app.do(newRequest(http.MethodPost, "/auth/sign-out"))
	assert.Equal(t, http.StatusOK, rec.Code, "anonymous sign-out is harmless")
}

func Test_authApi_state(t *testing.T) {
	app := setup(t)

	rec := app.do(newRequest(http.MethodGet, "/auth/state"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"isAuthenticated":false,"account":null}`)}, rec)

	req, rec := newRequest(http.MethodGet, "/auth/state")
	req.AddCookie(&http.Cookie{Name: app.conf.Server.CookieName, Value: app.getToken(t, app.student)})
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isAuthenticated":true`)
	assert.Contains(t, rec.Body.String(), `"role":"student"`)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func Test_authApi_updatePassword(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	path := "/auth/student/update-password"
	adminToken := app.getToken(t, app.admin)
	studentToken := app.getToken(t, app.student)
	body := func(id, pwd string) []byte {
		return marchallObj(t, account.PasswordUpdate{StudentID: id, NewPassword: pwd})
	}

	tests := []httpTest{
		{
			name:     "anonymous",
			body:     body(app.student.ID, "kitab-2025"),
			wantCode: http.StatusForbidden,
			wantData: errBody(t, core.CodeForbidden),
		},
		{
			name:     "student",
			body:     body(app.student.ID, "kitab-2025"),
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: errBody(t, core.CodeForbidden),
		},
		{
			name:     "student with malformed body",
			body:     []byte(`{`),
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: errBody(t, core.CodeForbidden),
		},
		{
			name:     "missing fields",
			body:     body(app.student.ID, ""),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, core.CodeMissingFields),
		},
		{
			name:     "unknown student",
			body:     body("acc-unknown", "kitab-2025"),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: errBody(t, core.CodeStudentNotFound),
		},
		{
			name:     "admin target",
			body:     body(app.admin.ID, "kitab-2025"),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: errBody(t, core.CodeStudentNotFound),
		},
		{
			name:     "weak password",
			body:     body(app.student.ID, "123"),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "updated",
			body:     body(app.student.ID, "kitab-2025"),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: okBody(t, core.CodePasswordUpdated, apiResponse{}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(http.MethodPost, path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
			if tt.name == "weak password" {
				res := decode(t, rec)
				assert.Equal(t, core.CodeInvalidPassword, res.Code)
				assert.NotEmpty(t, res.Fields)
			}
		})
	}

	acc, err := app.db.GetAccountByID(ctx, app.student.ID)
	require.NoError(t, err)
	ok, err := testutil.Hasher().Verify("kitab-2025", acc.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	rec := app.do(newAuthRequest(http.MethodGet, "/student", studentToken))
	assert.Equal(t, http.StatusFound, rec.Code, "student sessions are revoked")
}

func Test_authApi_updatePassword_storeFailure(t *testing.T) {
	app := setupWithRepo(t, func(db *inmemdb.DB) repo { return brokenPasswords{db} })
	rec := app.do(newAuthRequest(http.MethodPost, "/auth/student/update-password", app.getToken(t, app.admin),
		marchallObj(t, account.PasswordUpdate{StudentID: app.student.ID, NewPassword: "kitab-2025"})))
	checkCodeAndData(t, httpTest{wantCode: http.StatusInternalServerError, wantData: errBody(t, core.CodeUpdateError)}, rec)
}

var errStore = errors.New("store unavailable")

type brokenCodes struct{ *inmemdb.DB }

func (brokenCodes) LatestCode(context.Context, string) (otp.Code, error) { return otp.Code{}, errStore }

type brokenPasswords struct{ *inmemdb.DB }

func (brokenPasswords) UpdatePasswordHash(context.Context, string, string, time.Time) error {
	return errStore
}
