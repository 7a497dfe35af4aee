// Package emailsvc delivers core.EmailMessage through the configured backend.
package emailsvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

// New returns the email service selected by conf.Email.Backend.
func New(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	switch conf.Email.Backend {
	case "", core.EmailConsole:
		return NewConsoleService(conf, logger), nil
	case core.EmailSendgrid:
		if conf.Email.SendgridAPIKey == "" {
			return nil, errors.New("sendgrid backend requires an API key")
		}
		return NewSendgridService(conf, logger), nil
	case core.EmailSMTP:
		return NewSMTPService(conf, logger), nil
	default:
		return nil, errors.Errorf("unknown email backend %q", conf.Email.Backend)
	}
}
