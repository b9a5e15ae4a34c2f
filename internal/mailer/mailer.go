// Package mailer отправляет письма с приглашениями в команду
package mailer

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// Sender отправляет письмо с приглашением
type Sender interface {
	SendInvitationEmail(ctx context.Context, to, teamName, inviteLink string) error
}

// SMTPSender отправляет письма через SMTP сервер
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTPSender создает SMTP отправителя
func NewSMTPSender(host string, port int, username, password, from, fromName string) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		fromName: fromName,
	}
}

// SendInvitationEmail отправляет приглашение. gomail не принимает контекст,
// поэтому отмена проверяется только до начала отправки
func (s *SMTPSender) SendInvitationEmail(ctx context.Context, to, teamName, inviteLink string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := buildInvitation(s.from, s.fromName, to, teamName, inviteLink)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send invitation email to %s: %w", to, err)
	}
	return nil
}

func buildInvitation(from, fromName, to, teamName, inviteLink string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("You are invited to join %s", teamName))
	m.SetBody("text/plain", fmt.Sprintf(
		"You have been invited to join the team %q.\n\nOpen the link to accept or reject the invitation:\n%s\n",
		teamName, inviteLink,
	))
	m.AddAlternative("text/html", fmt.Sprintf(
		`<p>You have been invited to join the team <b>%s</b>.</p><p><a href="%s">Accept or reject the invitation</a></p>`,
		html.EscapeString(teamName), html.EscapeString(inviteLink),
	))
	return m
}

// NoopSender используется, когда SMTP не настроен
type NoopSender struct{}

// SendInvitationEmail ничего не отправляет
func (NoopSender) SendInvitationEmail(context.Context, string, string, string) error {
	return nil
}
