package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database engines
const (
	EngineMemory   = "memory"
	EngineMongoDB  = "mongodb"
	EnginePostgres = "postgres"
)

// Email backends
const (
	EmailConsole  = "console"
	EmailSendgrid = "sendgrid"
	EmailSMTP     = "smtp"
)

type (
	ServerConfig struct {
		Address           string
		Host              string
		DebugHost         string
		ShutdownTimeout   time.Duration
		SessionTTL        time.Duration
		CookieName        string
		SecureCookie      bool
		RequestsPerSecond float64 // per client IP on /auth; 0 disables the limiter
		Burst             int
		SignInPath        string
		StudentHomePath   string
		AdminHomePath     string
	}

	DatabaseConfig struct {
		Engine string
		URI    string // mongodb URI or postgres DSN
		Name   string // mongodb database name
	}

	OTPConfig struct {
		Length       int
		Alphanumeric bool
		TTL          time.Duration
		Cooldown     time.Duration
		MaxAttempts  int
		AllowList    []string
		PurgeEvery   time.Duration
	}

	PasswordConfig struct {
		Hasher     string // argon2 | bcrypt
		BcryptCost int
		MinLength  int
		Strict     bool
	}

	EmailConfig struct {
		Backend        string
		SendgridAPIKey string
		SMTPHost       string
		SMTPPort       int
		SMTPUsername   string
		SMTPPassword   string
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		RollbarToken     string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address

		Server   ServerConfig
		Database DatabaseConfig
		OTP      OTPConfig
		Password PasswordConfig
		Email    EmailConfig
	}
)

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment keys are prefixed with the uppercased ENV value, e.g. `DEV_OTP_TTL=10m`.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database.engine", EngineMemory)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:         v.GetString("appName"),
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		WorkDir:         wd,
		SecretKey:       v.GetString("secretKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		Server: ServerConfig{
			Address:           v.GetString("server.address"),
			Host:              v.GetString("server.host"),
			DebugHost:         v.GetString("server.debugHost"),
			ShutdownTimeout:   v.GetDuration("server.shutdownTimeout"),
			SessionTTL:        v.GetDuration("server.sessionTTL"),
			CookieName:        v.GetString("server.cookieName"),
			SecureCookie:      v.GetBool("server.secureCookie"),
			RequestsPerSecond: v.GetFloat64("server.requestsPerSecond"),
			Burst:             v.GetInt("server.burst"),
			SignInPath:        v.GetString("server.signInPath"),
			StudentHomePath:   v.GetString("server.studentHomePath"),
			AdminHomePath:     v.GetString("server.adminHomePath"),
		},
		Database: DatabaseConfig{
			Engine: strings.ToLower(v.GetString("database.engine")),
			URI:    v.GetString("database.uri"),
			Name:   v.GetString("database.name"),
		},
		OTP: OTPConfig{
			Length:       v.GetInt("otp.length"),
			Alphanumeric: v.GetBool("otp.alphanumeric"),
			TTL:          v.GetDuration("otp.ttl"),
			Cooldown:     v.GetDuration("otp.cooldown"),
			MaxAttempts:  v.GetInt("otp.maxAttempts"),
			AllowList:    splitList(v.GetString("otp.allowList")),
			PurgeEvery:   v.GetDuration("otp.purgeEvery"),
		},
		Password: PasswordConfig{
			Hasher:     strings.ToLower(v.GetString("password.hasher")),
			BcryptCost: v.GetInt("password.bcryptCost"),
			MinLength:  v.GetInt("password.minLength"),
			Strict:     v.GetBool("password.strict"),
		},
		Email: EmailConfig{
			Backend:        strings.ToLower(v.GetString("email.backend")),
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
			SMTPHost:       v.GetString("email.smtpHost"),
			SMTPPort:       v.GetInt("email.smtpPort"),
			SMTPUsername:   v.GetString("email.smtpUsername"),
			SMTPPassword:   v.GetString("email.smtpPassword"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Madrasa")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "e1#c0m-kq8tz)v!f2n&h3t@w9pd$y+xr5l(ub7s=aj4g6%o^i")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.address", "0.0.0.0:8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.sessionTTL", 7*24*time.Hour)
	v.SetDefault("server.cookieName", "madrasa_session")
	v.SetDefault("server.secureCookie", false)
	v.SetDefault("server.requestsPerSecond", 5.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.signInPath", "/sign-in")
	v.SetDefault("server.studentHomePath", "/student")
	v.SetDefault("server.adminHomePath", "/admin")

	v.SetDefault("database.engine", EngineMongoDB)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "madrasa")

	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.alphanumeric", false)
	v.SetDefault("otp.ttl", 5*time.Minute)
	v.SetDefault("otp.cooldown", 60*time.Second)
	v.SetDefault("otp.maxAttempts", 5)
	v.SetDefault("otp.allowList", "")
	v.SetDefault("otp.purgeEvery", 15*time.Minute)

	v.SetDefault("password.hasher", "argon2")
	v.SetDefault("password.bcryptCost", 12)
	v.SetDefault("password.minLength", 6)
	v.SetDefault("password.strict", false)

	v.SetDefault("email.backend", EmailConsole)
	v.SetDefault("email.sendgridAPIKey", "")
	v.SetDefault("email.smtpHost", "localhost")
	v.SetDefault("email.smtpPort", 587)
	v.SetDefault("email.smtpUsername", "")
	v.SetDefault("email.smtpPassword", "")
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(s, ",") {
		if item = CleanString(item, true /* lower */); item != "" {
			items = append(items, item)
		}
	}
	return items
}
