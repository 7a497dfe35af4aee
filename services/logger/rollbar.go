// Package logsvc implements core.Logger on zerolog, reporting to Rollbar when enabled.
package logsvc

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/trezcool/madrasa/core"
)

var exitFunc = os.Exit // mockable

type RollbarLogger struct {
	zl      zerolog.Logger
	mu      sync.RWMutex
	enabled bool
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger writes JSON lines tagged with component to w. Rollbar reporting stays off until Enable(true).
func NewRollbarLogger(w io.Writer, component string, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(false)

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(w).Level(level).With().
		Timestamp().
		Str("component", component).
		Str("env", conf.Env).
		Logger()
	return &RollbarLogger{zl: zl}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.mu.Lock()
	l.enabled = enabled
	l.mu.Unlock()
	rollbar.SetEnabled(enabled)
}

func (l *RollbarLogger) reporting() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// expected fmt: msg | error, map[string]interface{}, core.Person
func (l *RollbarLogger) prepare(ev *zerolog.Event, msg string, args []interface{}) []interface{} {
	var personSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Person:
			if personSet { // only one person
				continue
			}
			id, name, email := a.LogPerson()
			ev.Dict("person", zerolog.Dict().Str("id", id).Str("name", name).Str("email", email))
			if l.reporting() {
				rollbar.SetPerson(id, name, email)
			}
			personSet = true
		case error:
			ev.Err(a)
			rbArgs = append(rbArgs, a)
		case map[string]interface{}:
			ev.Fields(a)
			rbArgs = append(rbArgs, a)
		case nil:
		default:
			ev.Str("extra", fmt.Sprintf("%+v", a))
		}
	}
	if !personSet && l.reporting() {
		rollbar.ClearPerson()
	}
	return rbArgs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	ev := l.zl.Debug()
	rbArgs := l.prepare(ev, msg, args)
	ev.Msg(msg)
	if l.reporting() {
		rollbar.Debug(rbArgs...)
	}
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	ev := l.zl.Info()
	rbArgs := l.prepare(ev, msg, args)
	ev.Msg(msg)
	if l.reporting() {
		rollbar.Info(rbArgs...)
	}
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	ev := l.zl.Warn()
	rbArgs := l.prepare(ev, msg, args)
	ev.Msg(msg)
	if l.reporting() {
		rollbar.Warning(rbArgs...)
	}
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	ev := l.zl.Error()
	rbArgs := l.prepare(ev, msg, args)
	ev.Msg(msg)
	if l.reporting() {
		rollbar.Error(rbArgs...)
	}
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	ev := l.zl.WithLevel(zerolog.FatalLevel)
	rbArgs := l.prepare(ev, msg, args)
	ev.Msg(msg)
	if l.reporting() {
		rollbar.Critical(rbArgs...)
		rollbar.Close()
	}
	exitFunc(1)
}

// Close flushes pending Rollbar reports.
func (l *RollbarLogger) Close() {
	if l.reporting() {
		rollbar.Close()
	}
}
