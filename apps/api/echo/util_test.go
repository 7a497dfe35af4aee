package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/otp"
	emailsvc "github.com/trezcool/madrasa/services/email"
	inmemdb "github.com/trezcool/madrasa/storage/database/inmem"
	"github.com/trezcool/madrasa/testutil"
)

type testApp struct {
	*Server
	db      *inmemdb.DB
	mail    *emailsvc.ConsoleServiceMock
	logger  *testutil.Logger
	conf    *core.Config
	student account.Account
	admin   account.Account
}

type repo interface {
	account.Repository
	otp.Repository
	otp.AllowListRepository
	auth.SessionRepository
}

func setup(t *testing.T) *testApp {
	return setupWithRepo(t, nil)
}

// setupWithRepo lets tests swap the store; nil keeps the in-memory one.
func setupWithRepo(t *testing.T, wrap func(db *inmemdb.DB) repo, configure ...func(conf *core.Config)) *testApp {
	conf := testutil.Config()
	for _, fn := range configure {
		fn(conf)
	}
	db := inmemdb.NewDB()
	var store repo = db
	if wrap != nil {
		store = wrap(db)
	}

	logger := testutil.NewLogger(t)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	validate, translator := testutil.NewValidator(conf.Password)

	codec := auth.NewTokenCodec(conf.SecretKey, conf.AppName)
	sessions := auth.NewManager(store, codec, conf.Server.SessionTTL, logger)
	accountSvc := account.NewService(account.Deps{
		Repo:     store,
		Hasher:   testutil.Hasher(),
		Validate: validate,
		Sessions: sessions,
		Logger:   logger,
	})
	otpSvc := otp.NewService(otp.Deps{
		Repo:      store,
		AllowList: otp.NewAllowList(conf.OTP.AllowList, store),
		MailSvc:   mailSvc,
		Logger:    logger,
	}, otp.NewConfig(conf))

	app := &testApp{
		Server: NewServer(ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			AccountSvc: accountSvc,
			OTPSvc:     otpSvc,
			Sessions:   sessions,
			Resolver:   auth.NewResolver(codec, store, store, logger),
		}),
		db:     db,
		mail:   mailSvc,
		logger: logger,
		conf:   conf,
	}
	t.Cleanup(func() { _ = app.Close() })

	app.student = testutil.CreateAccount(t, db, "salma@example.com", "سلمى", "qalam-2024", account.RoleStudent, true)
	app.admin = testutil.CreateAccount(t, db, "admin@example.com", "المشرف", "", account.RoleAdmin, true)
	return app
}

func (app *testApp) getToken(t *testing.T, acc account.Account) string {
	token, _, err := app.deps.Sessions.Establish(context.Background(), acc, auth.ClientInfo{})
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

var sixDigits = regexp.MustCompile(`[0-9]{6}`)

// lastCode returns the code sent in the last OTP email.
func (app *testApp) lastCode(t *testing.T) string {
	sent := app.mail.SentMessages()
	require.NotEmpty(t, sent)
	code := sixDigits.FindString(sent[len(sent)-1].TextContent)
	require.NotEmpty(t, code)
	return code
}

func (app *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func errBody(t *testing.T, code string) []byte {
	return marchallObj(t, apiResponse{Code: code, Message: core.Message(nil, code)})
}

func okBody(t *testing.T, code string, res apiResponse) []byte {
	res.Success = true
	res.Code = code
	res.Message = core.Message(nil, code)
	return marchallObj(t, res)
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	var res apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func sessionCookieOf(t *testing.T, app *testApp, rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == app.conf.Server.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", app.conf.Server.CookieName)
	return nil
}

func withinTTL(t *testing.T, app *testApp, expires time.Time) {
	assert.WithinDuration(t, time.Now().Add(app.conf.Server.SessionTTL), expires, 5*time.Second)
}
