package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/testutil"
)

func otpMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Admin", Address: "admin@example.com"}},
		Subject:      "رمز التحقق",
		TemplateName: "otp_code",
		TemplateData: struct {
			Code       string
			TTLMinutes int
		}{Code: "482913", TTLMinutes: 5},
	}
}

func TestNew(t *testing.T) {
	logger := testutil.NewLogger(t)
	tests := []struct {
		name    string
		backend string
		key     string
		wantErr bool
	}{
		{name: "default", backend: ""},
		{name: "console", backend: core.EmailConsole},
		{name: "sendgrid", backend: core.EmailSendgrid, key: "SG.key"},
		{name: "sendgrid without key", backend: core.EmailSendgrid, wantErr: true},
		{name: "smtp", backend: core.EmailSMTP},
		{name: "unknown", backend: "pigeon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testutil.Config()
			conf.Email.Backend = tt.backend
			conf.Email.SendgridAPIKey = tt.key
			svc, err := New(conf, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := NewConsoleServiceMock(testutil.Config())

	svc.SendMessages(otpMessage(), &core.EmailMessage{Subject: "no recipients", BodyStr: "x"})

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "482913")
	assert.Contains(t, sent[0].HTMLContent, "482913")
	assert.Contains(t, sent[0].HTMLContent, `dir="rtl"`)

	body, err := svc.format(sent[0])
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Madrasa] رمز التحقق")
	assert.Contains(t, body, "admin@example.com")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestSendgridService_prepare(t *testing.T) {
	conf := testutil.Config()
	svc := NewSendgridService(conf, testutil.NewLogger(t)).(*sendgridService)
	msg := otpMessage()
	require.NoError(t, msg.Render())

	m := svc.prepare(*msg)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Madrasa] رمز التحقق", m.Personalizations[0].Subject)
	assert.Equal(t, "admin@example.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "noreply@madrasa.test", m.From.Address)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}

func TestSMTPService_prepare(t *testing.T) {
	svc := NewSMTPService(testutil.Config(), testutil.NewLogger(t)).(*smtpService)
	msg := &core.EmailMessage{To: []mail.Address{{Address: "admin@example.com"}}, Subject: "hello", BodyStr: "plain body"}
	require.NoError(t, msg.Render())

	m := svc.prepare(*msg)
	assert.Equal(t, []string{"[Madrasa] hello"}, m.GetHeader("Subject"))
	require.Len(t, m.GetHeader("To"), 1)
	assert.True(t, strings.Contains(m.GetHeader("To")[0], "admin@example.com"))
	assert.Contains(t, m.GetHeader("From")[0], "noreply@madrasa.test")
}
