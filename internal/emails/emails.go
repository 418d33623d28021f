// Package emails sends the transactional messages of the service: the
// magic link granting declaration access and the publication confirmation.
package emails

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

const accessGrantedSubject = "Déclaration de votre index d'égalité professionnelle"

const accessGrantedBody = `Bonjour,

Voici le lien vous permettant de déclarer votre index d'égalité professionnelle :

%s

L'équipe Index Egapro
`

const successSubject = "Votre déclaration est confirmée"

const successBody = `Bonjour,

Votre déclaration de l'index d'égalité professionnelle pour le SIREN %s et
l'année %d est maintenant confirmée.

L'équipe Index Egapro
`

// Sender delivers one message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Mailer renders and sends the service messages.
type Mailer struct {
	sender Sender
}

func New(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

// AccessGranted sends the magic link that authenticates a declarant.
func (m *Mailer) AccessGranted(ctx context.Context, to, link string) error {
	return m.sender.Send(ctx, to, accessGrantedSubject, fmt.Sprintf(accessGrantedBody, link))
}

// Success confirms the first publication of a declaration.
func (m *Mailer) Success(ctx context.Context, to, siren string, year int) error {
	return m.sender.Send(ctx, to, successSubject, fmt.Sprintf(successBody, siren, year))
}

// SMTPSender sends through a plain SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	Login    string
	Password string
	From     string
	SSL      bool
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Login != "" {
		auth = smtp.PlainAuth("", s.Login, s.Password, s.Host)
	}
	if err := smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

// LogSender logs messages instead of delivering them, used when the send
// flag is off and in tests.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email suppressed", "to", to, "subject", subject, "body", body)
	return nil
}
