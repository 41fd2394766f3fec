package smtp

import (
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"sync"

	"github.com/go-api-accounts/internal/config"
)

// Mailer sends HTML emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, mime.QEncoding.Encode("utf-8", subject), body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return m.send(addr, auth, m.from, []string{to}, []byte(msg))
}

// Dispatcher sends mail on background goroutines. Failures are logged, never returned.
type Dispatcher struct {
	mailer Mailer
	log    *slog.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(m Mailer, log *slog.Logger) *Dispatcher {
	return &Dispatcher{mailer: m, log: log}
}

func (d *Dispatcher) Send(to, subject, body string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.mailer.SendEmail(to, subject, body); err != nil {
			d.log.Error("send email failed", "to", to, "subject", subject, "err", err)
		}
	}()
}

// Wait blocks until every queued email has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
