package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakho/ecommerce-webservices/internal/queue"
)

type capturedMail struct {
	to, subject, body string
}

type capturingSender struct{ mails []capturedMail }

func (s *capturingSender) Send(_ context.Context, to, subject, body string) error {
	s.mails = append(s.mails, capturedMail{to: to, subject: subject, body: body})
	return nil
}

func TestDispatchRegisteredSendsVerificationLink(t *testing.T) {
	sender := &capturingSender{}
	m := NewMailer(sender, "https://shop.example.com", "Example Shop")

	ev := queue.NewEvent(queue.EventUserRegistered, "u-1")
	ev.Email = "a@x.com"
	ev.Username = "alice"
	ev.VerificationToken = "tok-123"
	require.NoError(t, m.Dispatch(context.Background(), ev))

	require.Len(t, sender.mails, 1)
	mail := sender.mails[0]
	assert.Equal(t, "a@x.com", mail.to)
	assert.Equal(t, "Verify Your Email - Example Shop", mail.subject)
	assert.Contains(t, mail.body, "alice")
	assert.Contains(t, mail.body, "https://shop.example.com/verify-email?token=tok-123")
}

func TestDispatchPasswordResetSendsConfirmation(t *testing.T) {
	sender := &capturingSender{}
	m := NewMailer(sender, "https://shop.example.com", "Example Shop")

	ev := queue.NewEvent(queue.EventPasswordReset, "u-1")
	ev.Email = "a@x.com"
	ev.Username = "alice"
	require.NoError(t, m.Dispatch(context.Background(), ev))

	require.Len(t, sender.mails, 1)
	assert.Equal(t, "Password Successfully Reset - Example Shop", sender.mails[0].subject)
}

func TestDispatchInvalidationKindsSendNothing(t *testing.T) {
	sender := &capturingSender{}
	m := NewMailer(sender, "https://shop.example.com", "Example Shop")

	for _, kind := range []queue.EventKind{queue.EventUserUpdated, queue.EventUserRoleUpdated} {
		ev := queue.NewEvent(kind, "u-1")
		ev.Email = "a@x.com"
		require.NoError(t, m.Dispatch(context.Background(), ev))
	}
	assert.Empty(t, sender.mails)
}

func TestDispatchUnknownKindErrors(t *testing.T) {
	m := NewMailer(&capturingSender{}, "https://shop.example.com", "Example Shop")
	err := m.Dispatch(context.Background(), queue.NewEvent("user.vanished", "u-1"))
	assert.Error(t, err)
}

func TestSendPasswordResetLinksTheToken(t *testing.T) {
	sender := &capturingSender{}
	m := NewMailer(sender, "https://shop.example.com", "Example Shop")

	require.NoError(t, m.SendPasswordReset(context.Background(), "a@x.com", "alice", "tok-9"))
	require.Len(t, sender.mails, 1)
	assert.True(t, strings.Contains(sender.mails[0].body, "https://shop.example.com/reset-password?token=tok-9"))
}
