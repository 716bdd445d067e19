package email

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/komix/komix-api/internal/config"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendPasswordReset sends the reset link to the user
func (s *Sender) SendPasswordReset(to, username, link string) error {
	e := s.passwordResetEmail(to, username, link)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send password reset email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) passwordResetEmail(to, username, link string) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Password reset"

	body := fmt.Sprintf("Dear %s,\n\n", username)
	body += fmt.Sprintf(
		"A password reset was requested for your account.\n"+
			"Follow this link within %s to choose a new password:\n\n%s\n\n"+
			"If you did not ask for this, you can ignore this message.\n",
		s.cfg.ResetTTL, link,
	)
	body += "\nBest regards,\nKomix"
	e.Text = []byte(body)
	e.HTML = []byte(fmt.Sprintf(
		`<p>Dear %s,</p><p>A password reset was requested for your account.</p>`+
			`<p><a href="%s">Choose a new password</a></p>`+
			`<p>If you did not ask for this, you can ignore this message.</p>`,
		html.EscapeString(username), html.EscapeString(link),
	))
	return e
}
