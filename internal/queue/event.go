// Package queue defines the auth domain events exchanged over the message
// broker and the background consumer that applies their side effects.
// Events are published only after the triggering database transaction has
// committed and are handled off the request thread, so cache invalidation
// can never observe (or resurrect) pre-commit state.
package queue

import (
	"context"
	"time"
)

// AuthQueueName is the durable queue carrying every auth event.
const AuthQueueName = "auth.events"

// EventKind tags the variant of an Event. The payload fields used depend
// on the kind; unused fields are omitted from the JSON.
type EventKind string

const (
	// EventUserRegistered triggers the verification email.
	EventUserRegistered EventKind = "user.registered"
	// EventPasswordReset triggers the reset confirmation email.
	EventPasswordReset EventKind = "password.reset"
	// EventUserUpdated invalidates the user-data cache (profile change,
	// status change, deletion).
	EventUserUpdated EventKind = "user.updated"
	// EventUserRoleUpdated invalidates the role cache and the user-data
	// cache, which embeds role names.
	EventUserRoleUpdated EventKind = "user.role_updated"
)

// Event is a tagged union: Kind selects the variant, the remaining fields
// are its payload. A single consumer dispatches on Kind, which keeps the
// kind-to-side-effect mapping data-driven and testable in one place.
type Event struct {
	Kind              EventKind `json:"kind"`
	UserID            string    `json:"user_id"`
	Email             string    `json:"email,omitempty"`
	Username          string    `json:"username,omitempty"`
	VerificationToken string    `json:"verification_token,omitempty"`
	OccurredAt        string    `json:"occurred_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(kind EventKind, userID string) Event {
	return Event{
		Kind:       kind,
		UserID:     userID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Publisher delivers events to the broker. Satisfied by *AMQPPublisher;
// tests substitute an in-memory recorder.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
