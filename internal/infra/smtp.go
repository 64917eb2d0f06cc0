package infra

import (
	"fmt"
	"net/smtp"

	"medicalmuneras/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends delivery receipts through the configured SMTP relay. Every
// send goes through a circuit breaker so a dead relay does not tie up workers.
type Mailer struct {
	from    string
	user    string
	pass    string
	host    string
	addr    string
	breaker *CircuitBreaker
	send    func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		from:    fmt.Sprintf("%s <%s>", cfg.BusinessName, cfg.SMTPUser),
		user:    cfg.SMTPUser,
		pass:    cfg.SMTPPassword,
		host:    cfg.SMTPHost,
		addr:    fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		breaker: NewCircuitBreaker(DefaultCBConfig("smtp")),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Configured reports whether an SMTP host was provided.
func (m *Mailer) Configured() bool { return m.host != "" }

// Breaker exposes the SMTP circuit breaker for the health endpoint.
func (m *Mailer) Breaker() *CircuitBreaker { return m.breaker }

// SendComprobante e-mails a receipt with the PDF at pdfPath attached.
func (m *Mailer) SendComprobante(to, subject, body, pdfPath string) error {
	if !m.Configured() {
		return fmt.Errorf("mailer: SMTP_HOST not configured")
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return m.breaker.Execute(func() error {
		return m.send(e, m.addr, auth)
	})
}
