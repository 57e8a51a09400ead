// Package mail implements the MailSender port over SMTP.
package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP connection settings and the sender identity.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends OTP delivery emails over SMTP.
type Mailer struct {
	config Config
	dialer *gomail.Dialer
}

// NewMailer creates a Mailer from SMTP configuration.
func NewMailer(cfg Config) *Mailer {
	return &Mailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendVerificationOTP mails an email-verification code.
func (m *Mailer) SendVerificationOTP(ctx context.Context, email, name, code string) error {
	return m.send(ctx, email, "Verify your email", verificationBody(name, code))
}

// SendPasswordResetOTP mails a password-reset code.
func (m *Mailer) SendPasswordResetOTP(ctx context.Context, email, name, code string) error {
	return m.send(ctx, email, "Password Reset Code", passwordResetBody(name, code))
}

// send delivers a single message. gomail's dialer has no context support, so
// the send runs in a goroutine and the context can only abandon the wait, not
// the SMTP exchange itself.
func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func verificationBody(name, code string) string {
	return fmt.Sprintf(
		`<p>Hi %s,</p><p>Your email verification code is <strong>%s</strong>. It expires in 5 minutes.</p><p>&copy; %d quiz-api</p>`,
		name, code, time.Now().Year(),
	)
}

func passwordResetBody(name, code string) string {
	return fmt.Sprintf(
		`<p>Hi %s,</p><p>Your password reset code is <strong>%s</strong>. It expires in 5 minutes. If you did not request it, ignore this email.</p><p>&copy; %d quiz-api</p>`,
		name, code, time.Now().Year(),
	)
}
