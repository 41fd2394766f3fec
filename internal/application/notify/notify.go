// Package notify renders account emails and hands them to a background sender.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/go-api-accounts/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Sender delivers a rendered email without reporting the outcome.
type Sender interface {
	Send(to, subject, body string)
}

type Notifier struct {
	sender Sender
	otpTTL time.Duration
}

func New(sender Sender, otpTTL time.Duration) *Notifier {
	return &Notifier{sender: sender, otpTTL: otpTTL}
}

type data struct {
	Name      string
	OTP       int
	ExpiresIn string
}

func (n *Notifier) SendActivationOTP(u *domain.User, code int) error {
	return n.send(u, "Verify your email", "email-activation.html", code)
}

func (n *Notifier) SendPasswordResetOTP(u *domain.User, code int) error {
	return n.send(u, "Your account password reset email", "password-reset.html", code)
}

func (n *Notifier) SendWelcome(u *domain.User) error {
	return n.send(u, "Account verified!", "welcome.html", 0)
}

func (n *Notifier) SendPasswordResetSuccess(u *domain.User) error {
	return n.send(u, "Password Reset Successful!", "password-reset-success.html", 0)
}

func (n *Notifier) send(u *domain.User, subject, name string, code int) error {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, data{
		Name:      u.FullName(),
		OTP:       code,
		ExpiresIn: n.otpTTL.String(),
	})
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	n.sender.Send(u.Email, subject, buf.String())
	return nil
}
