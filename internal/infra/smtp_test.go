package infra

import (
	"errors"
	"net/smtp"
	"os"
	"path/filepath"
	"testing"

	"medicalmuneras/internal/config"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMailer() *Mailer {
	return NewMailer(&config.Config{
		BusinessName: "Medical Muñeras",
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUser:     "remisiones@example.com",
		SMTPPassword: "secret",
	})
}

func TestMailer_NotConfigured(t *testing.T) {
	m := NewMailer(&config.Config{})
	assert.False(t, m.Configured())
	assert.Error(t, m.SendComprobante("a@b.co", "asunto", "cuerpo", ""))
}

func TestMailer_SendComprobante(t *testing.T) {
	m := testMailer()
	pdf := filepath.Join(t.TempDir(), "comprobante_R1.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.3"), 0o644))

	var sent *email.Email
	var addr string
	m.send = func(e *email.Email, a string, _ smtp.Auth) error {
		sent, addr = e, a
		return nil
	}

	require.NoError(t, m.SendComprobante("cliente@example.com", "Comprobante R1", "Gracias", pdf))
	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, []string{"cliente@example.com"}, sent.To)
	assert.Equal(t, "Medical Muñeras <remisiones@example.com>", sent.From)
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "comprobante_R1.pdf", sent.Attachments[0].Filename)
}

func TestMailer_MissingAttachment(t *testing.T) {
	m := testMailer()
	m.send = func(*email.Email, string, smtp.Auth) error { return nil }

	assert.Error(t, m.SendComprobante("c@example.com", "s", "b", filepath.Join(t.TempDir(), "missing.pdf")))
}

func TestMailer_BreakerOpensOnRelayFailures(t *testing.T) {
	m := testMailer()
	m.send = func(*email.Email, string, smtp.Auth) error { return errors.New("dial tcp: refused") }

	for i := 0; i < 5; i++ {
		assert.Error(t, m.SendComprobante("c@example.com", "s", "b", ""))
	}
	assert.Equal(t, CBOpen, m.Breaker().State())
	assert.ErrorIs(t, m.SendComprobante("c@example.com", "s", "b", ""), ErrCircuitOpen)
}
