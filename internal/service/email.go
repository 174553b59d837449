package service

import (
	"context"
	"fmt"
	"log"

	"github.com/lakho/ecommerce-webservices/internal/queue"
)

// EmailSender delivers a rendered message. SMTP wiring lives behind this
// interface; the default LogEmailSender only records the send, which is
// enough for development and tests.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogEmailSender writes outbound mail to the process log instead of
// delivering it.
type LogEmailSender struct{}

func (LogEmailSender) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("email: to=%s subject=%q", to, subject)
	return nil
}

// Mailer renders and sends the transactional emails of the auth flows.
// Each event kind maps to exactly one (subject, body) template; kinds that
// only drive cache invalidation map to no email at all.
type Mailer struct {
	Sender      EmailSender
	FrontendURL string
	FromName    string
}

func NewMailer(sender EmailSender, frontendURL, fromName string) *Mailer {
	return &Mailer{Sender: sender, FrontendURL: frontendURL, FromName: fromName}
}

// Dispatch sends the email an event calls for, or nothing for the
// cache-invalidation kinds.
func (m *Mailer) Dispatch(ctx context.Context, ev queue.Event) error {
	switch ev.Kind {
	case queue.EventUserRegistered:
		return m.SendVerification(ctx, ev.Email, ev.Username, ev.VerificationToken)
	case queue.EventPasswordReset:
		return m.SendResetConfirmation(ctx, ev.Email, ev.Username)
	case queue.EventUserUpdated, queue.EventUserRoleUpdated:
		return nil
	default:
		return fmt.Errorf("no email mapping for event kind %q", ev.Kind)
	}
}

// SendVerification emails the account-activation link.
func (m *Mailer) SendVerification(ctx context.Context, to, username, token string) error {
	url := fmt.Sprintf("%s/verify-email?token=%s", m.FrontendURL, token)
	subject := fmt.Sprintf("Verify Your Email - %s", m.FromName)
	body := fmt.Sprintf(
		"Hello %s,\n\nThank you for registering. Verify your email address by opening:\n\n%s\n\nIf you didn't create an account, you can safely ignore this email.\n",
		username, url)
	return m.Sender.Send(ctx, to, subject, body)
}

// SendPasswordReset emails the reset link. Called synchronously from the
// forgot-password flow: that flow's sole purpose is this email, so its
// failure must surface.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, username, token string) error {
	url := fmt.Sprintf("%s/reset-password?token=%s", m.FrontendURL, token)
	subject := fmt.Sprintf("Password Reset Request - %s", m.FromName)
	body := fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nIf you didn't request this, you can safely ignore this email.\n",
		username, url)
	return m.Sender.Send(ctx, to, subject, body)
}

// SendResetConfirmation emails the post-reset notice.
func (m *Mailer) SendResetConfirmation(ctx context.Context, to, username string) error {
	subject := fmt.Sprintf("Password Successfully Reset - %s", m.FromName)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour password has been reset. If this wasn't you, contact support immediately.\n",
		username)
	return m.Sender.Send(ctx, to, subject, body)
}
