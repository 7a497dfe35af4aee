// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/credential"
)

// Hasher is a fast bcrypt hasher for tests.
func Hasher() credential.Hasher {
	return credential.NewBcryptHasher(bcrypt.MinCost)
}

// NewValidator returns a validator & Arabic translator with every application validation registered.
func NewValidator(conf core.PasswordConfig) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator, conf)
	if err := core.RegisterMessages(translator); err != nil {
		panic(err)
	}
	return validate, translator
}

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	email, name, pwd string,
	role account.Role,
	isActive bool,
	createdAt ...time.Time,
) account.Account {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	acc := account.Account{
		ID:          fmt.Sprintf("acc-%d", nextID()),
		Email:       core.NormalizeEmail(email),
		DisplayName: name,
		Role:        role,
		IsActive:    isActive,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		hash, err := Hasher().Hash(pwd)
		if err != nil {
			t.Fatalf("CreateAccount(): %v", err)
		}
		acc.PasswordHash = hash
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount(): %v", err)
	}
	return acc
}

var (
	idMu    sync.Mutex
	idCount int
)

func nextID() int {
	idMu.Lock()
	defer idMu.Unlock()
	idCount++
	return idCount
}

// Logger is a core.Logger writing to the test log. Entries are kept for assertions.
type Logger struct {
	t       *testing.T
	mu      sync.Mutex
	Entries []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t *testing.T) *Logger {
	return &Logger{t: t}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.Entries = append(l.Entries, level+": "+msg)
	l.mu.Unlock()
	l.t.Logf("%s: %s %v", level, msg, args)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	l.t.FailNow()
}

// Has reports whether an entry with level & msg was logged.
func (l *Logger) Has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if e == level+": "+msg {
			return true
		}
	}
	return false
}

// Config returns an application config for tests; nothing is read from the environment.
func Config() *core.Config {
	return &core.Config{
		AppName:          "Madrasa",
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://madrasa.test",
		DefaultFromEmail: mail.Address{Name: "Madrasa", Address: "noreply@madrasa.test"},
		Server: core.ServerConfig{
			Address:         ":0",
			Host:            "localhost",
			ShutdownTimeout: time.Second,
			SessionTTL:      24 * time.Hour,
			CookieName:      "madrasa_session",
			SignInPath:      "/sign-in",
			StudentHomePath: "/student",
			AdminHomePath:   "/admin",
		},
		Database: core.DatabaseConfig{Engine: core.EngineMemory},
		OTP: core.OTPConfig{
			Length:      6,
			TTL:         5 * time.Minute,
			Cooldown:    60 * time.Second,
			MaxAttempts: 5,
			AllowList:   []string{"admin@example.com"},
		},
		Password: core.PasswordConfig{Hasher: credential.Bcrypt, BcryptCost: bcrypt.MinCost, MinLength: 6},
		Email:    core.EmailConfig{Backend: core.EmailConsole},
	}
}
