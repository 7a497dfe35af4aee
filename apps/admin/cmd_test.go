package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/otp"
	inmemdb "github.com/trezcool/madrasa/storage/database/inmem"
	"github.com/trezcool/madrasa/testutil"
)

type cliFixture struct {
	*commandLine
	db  *inmemdb.DB
	out *bytes.Buffer
}

func setup(t *testing.T) cliFixture {
	db := inmemdb.NewDB()
	validate, _ := testutil.NewValidator(core.PasswordConfig{MinLength: 6})
	logger := testutil.NewLogger(t)
	out := new(bytes.Buffer)
	codec := auth.NewTokenCodec("test-secret-key", "Madrasa")

	return cliFixture{
		commandLine: &commandLine{
			accountSvc: account.NewService(account.Deps{
				Repo:     db,
				Hasher:   testutil.Hasher(),
				Validate: validate,
				Sessions: auth.NewManager(db, codec, time.Hour, logger),
				Logger:   logger,
			}),
			allowList: otp.NewAllowListManager(db),
			out:       out,
		},
		db:  db,
		out: out,
	}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
	wantCode   string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantCode != "":
		assert.Equal(t, tt.wantCode, core.ErrorCode(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Contains(t, err.Error(), tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli := setup(t)
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "allowlist without subcommand", args: []string{"allowlist"}, wantErr: errHelp},
		{name: "allowlist unknown subcommand", args: []string{"allowlist", "lol"}, wantErr: errHelp},
		{name: "allowlist add without email", args: []string{"allowlist", "add"}, wantErr: errHelp},
		{name: "migrate without command", args: []string{"migrate"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Contains(t, cli.out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	tt := cliTest{args: []string{"migrate", "up"}, wantErr: errNoSQLDatabase}
	tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))

	cli.commandLine.db = new(sql.DB)
	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(_ context.Context, command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "lessons", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no email", args: []string{"adduser"}, wantErr: errHelp},
		{name: "student without password", args: []string{"adduser", "-email", "omar@example.com"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-email", "omar@example.com", "-role", "teacher"}, wantErrStr: "unknown role"},
		{name: "invalid email", args: []string{"adduser", "-email", "omar"}, pwd: "kitab-123", wantCode: core.CodeValidationError},
		{name: "student", args: []string{"adduser", "-email", "Omar@Example.com", "-name", "عمر"}, pwd: "kitab-123"},
		{name: "duplicate", args: []string{"adduser", "-email", "omar@example.com"}, pwd: "kitab-123", wantErrStr: "already exists"},
		{name: "admin", args: []string{"adduser", "-email", "dean@example.com", "-role", "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	student, err := cli.db.GetAccountByEmail(ctx, "omar@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.RoleStudent, student.Role)
	assert.Equal(t, "عمر", student.DisplayName)
	ok, err := testutil.Hasher().Verify("kitab-123", student.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	admin, err := cli.db.GetAccountByEmail(ctx, "dean@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, admin.Role)
	assert.False(t, admin.HasPassword())
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	acc := testutil.CreateAccount(t, cli.db, "awa@example.com", "Awa", "old-secret", account.RoleStudent, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "awa@example.com"}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-email", "who@example.com"}, pwd: "n3w-secret", wantErr: account.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", "awa@example.com"}, pwd: "123", wantCode: core.CodeInvalidPassword},
		{name: "reset", args: []string{"resetpassword", "-email", "AWA@example.com"}, pwd: "n3w-secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	refreshed, err := cli.db.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, acc.PasswordHash, refreshed.PasswordHash)
	assert.Contains(t, cli.out.String(), "password updated for awa@example.com")
}

func Test_commandLine_setActive(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	acc := testutil.CreateAccount(t, cli.db, "awa@example.com", "Awa", "old-secret", account.RoleStudent, true)

	tests := []struct {
		cliTest
		wantActive bool
	}{
		{cliTest: cliTest{name: "no email", args: []string{"setactive"}, wantErr: errHelp}, wantActive: true},
		{cliTest: cliTest{name: "unknown", args: []string{"setactive", "-email", "who@example.com"}, wantErr: account.ErrNotFound}, wantActive: true},
		{cliTest: cliTest{name: "disable", args: []string{"setactive", "-email", "awa@example.com", "-active=false"}}, wantActive: false},
		{cliTest: cliTest{name: "enable", args: []string{"setactive", "-email", "awa@example.com"}}, wantActive: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
			refreshed, err := cli.db.GetAccountByID(ctx, acc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, refreshed.IsActive)
		})
	}
}

func Test_commandLine_allowList(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "add", args: []string{"allowlist", "add", "Dean@Example.com"}},
		{name: "add another", args: []string{"allowlist", "add", "amina@example.com"}},
		{name: "add twice", args: []string{"allowlist", "add", "dean@example.com"}, wantErr: otp.ErrAlreadyAllowed},
		{name: "remove", args: []string{"allowlist", "remove", "amina@example.com"}},
		{name: "remove unknown", args: []string{"allowlist", "remove", "amina@example.com"}, wantErr: otp.ErrNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "allowlist", "list"}))
	assert.Contains(t, cli.out.String(), "dean@example.com\t")
	assert.NotContains(t, cli.out.String(), "amina@example.com")
}
