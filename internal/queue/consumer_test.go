package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRoles struct {
	invalidated []uuid.UUID
	err         error
}

func (r *recordingRoles) Invalidate(_ context.Context, userID uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	r.invalidated = append(r.invalidated, userID)
	return nil
}

type recordingUsers struct {
	invalidated []uuid.UUID
}

func (r *recordingUsers) InvalidateByID(_ context.Context, userID uuid.UUID) error {
	r.invalidated = append(r.invalidated, userID)
	return nil
}

type recordingMail struct {
	dispatched []Event
}

func (r *recordingMail) Dispatch(_ context.Context, ev Event) error {
	r.dispatched = append(r.dispatched, ev)
	return nil
}

func newTestConsumer() (*Consumer, *recordingRoles, *recordingUsers, *recordingMail) {
	roles := &recordingRoles{}
	users := &recordingUsers{}
	mail := &recordingMail{}
	return &Consumer{Roles: roles, Users: users, Mail: mail}, roles, users, mail
}

func TestHandleEventMailKinds(t *testing.T) {
	c, roles, users, mail := newTestConsumer()
	ctx := context.Background()

	for _, kind := range []EventKind{EventUserRegistered, EventPasswordReset} {
		require.NoError(t, c.HandleEvent(ctx, NewEvent(kind, uuid.NewString())))
	}

	assert.Len(t, mail.dispatched, 2)
	assert.Empty(t, roles.invalidated, "mail kinds touch no cache")
	assert.Empty(t, users.invalidated)
}

func TestHandleEventUserUpdatedInvalidatesUserData(t *testing.T) {
	c, roles, users, mail := newTestConsumer()
	userID := uuid.New()

	require.NoError(t, c.HandleEvent(context.Background(), NewEvent(EventUserUpdated, userID.String())))

	assert.Equal(t, []uuid.UUID{userID}, users.invalidated)
	assert.Empty(t, roles.invalidated, "profile updates leave the role cache alone")
	assert.Empty(t, mail.dispatched)
}

func TestHandleEventRoleUpdatedInvalidatesBothCaches(t *testing.T) {
	c, roles, users, mail := newTestConsumer()
	userID := uuid.New()

	require.NoError(t, c.HandleEvent(context.Background(), NewEvent(EventUserRoleUpdated, userID.String())))

	assert.Equal(t, []uuid.UUID{userID}, roles.invalidated)
	assert.Equal(t, []uuid.UUID{userID}, users.invalidated)
	assert.Empty(t, mail.dispatched)
}

func TestHandleEventRejectsBadInput(t *testing.T) {
	c, _, _, _ := newTestConsumer()
	ctx := context.Background()

	assert.Error(t, c.HandleEvent(ctx, NewEvent(EventUserUpdated, "not-a-uuid")))
	assert.Error(t, c.HandleEvent(ctx, NewEvent("user.vanished", uuid.NewString())))
}

func TestHandleEventPropagatesInvalidatorFailure(t *testing.T) {
	c, roles, users, _ := newTestConsumer()
	roles.err = errors.New("redis down")
	userID := uuid.New()

	err := c.HandleEvent(context.Background(), NewEvent(EventUserRoleUpdated, userID.String()))
	require.Error(t, err)
	assert.Empty(t, users.invalidated, "user data invalidation is skipped when role invalidation fails")
}

func TestHandleMessageDecodesJSON(t *testing.T) {
	c, _, users, _ := newTestConsumer()
	userID := uuid.New()

	body := []byte(`{"kind":"user.updated","user_id":"` + userID.String() + `","occurred_at":"2026-01-01T00:00:00Z"}`)
	require.NoError(t, c.handleMessage(body))
	assert.Equal(t, []uuid.UUID{userID}, users.invalidated)

	assert.Error(t, c.handleMessage([]byte("{broken")))
}
