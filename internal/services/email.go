package services

import (
	"fmt"
	"html"
	"log/slog"
	"net/smtp"

	"github.com/dimitrije/medportal-api/internal/config"
)

type EmailService struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg config.SMTPConfig, logger *slog.Logger) *EmailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailService{cfg: cfg, logger: logger, send: smtp.SendMail}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

// Send delivers an HTML message. Without SMTP settings the message is
// dropped and logged.
func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		s.logger.Warn("smtp not configured, email dropped", "to", to, "subject", subject)
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return s.send(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

func (s *EmailService) SendPasswordReset(to, link string) error {
	subject := "Restablecer contraseña"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Restablecer contraseña</h2>
			<p>Recibimos una solicitud para restablecer la contraseña de tu cuenta.</p>
			<p><a href="%s">Haz clic aquí para elegir una nueva contraseña</a></p>
			<p>Si no solicitaste este cambio, ignora este mensaje.</p>
		</body>
		</html>
	`, html.EscapeString(link))

	return s.Send(to, subject, body)
}
