package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RoleInvalidator drops a user's cached role set.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// UserInvalidator drops a user's cached data projection.
type UserInvalidator interface {
	InvalidateByID(ctx context.Context, userID uuid.UUID) error
}

// EmailDispatcher maps an event to an outbound email, if the kind calls
// for one.
type EmailDispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Consumer listens on the auth.events queue and applies each event's side
// effects: cache invalidation for write events and email dispatch for the
// workflow events. Because delivery happens here, invalidation runs
// strictly after the publishing transaction committed and never on the
// request thread.
type Consumer struct {
	URL   string
	Roles RoleInvalidator
	Users UserInvalidator
	Mail  EmailDispatcher
}

func NewConsumer(roles RoleInvalidator, users UserInvalidator, mail EmailDispatcher) *Consumer {
	return &Consumer{URL: brokerURL(), Roles: roles, Users: users, Mail: mail}
}

// Start connects to the broker and consumes until the process exits. It
// runs a reconnect loop with capped exponential backoff; processing errors
// are logged and the offending message rejected without requeue so a
// malformed event cannot wedge the queue.
func (c *Consumer) Start() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("auth-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(conn); err != nil {
			log.Printf("auth-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func (c *Consumer) consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("auth-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(AuthQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(AuthQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handleMessage(d.Body); err != nil {
			log.Printf("auth-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.HandleEvent(ctx, ev)
}

// HandleEvent applies one event. Exposed for tests.
func (c *Consumer) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventUserRegistered, EventPasswordReset:
		return c.Mail.Dispatch(ctx, ev)
	case EventUserUpdated:
		userID, err := uuid.Parse(ev.UserID)
		if err != nil {
			return fmt.Errorf("bad user id %q: %w", ev.UserID, err)
		}
		if err := c.Users.InvalidateByID(ctx, userID); err != nil {
			return fmt.Errorf("invalidate user data: %w", err)
		}
		log.Printf("auth-consumer: invalidated user data cache user_id=%s", ev.UserID)
		return nil
	case EventUserRoleUpdated:
		userID, err := uuid.Parse(ev.UserID)
		if err != nil {
			return fmt.Errorf("bad user id %q: %w", ev.UserID, err)
		}
		if err := c.Roles.Invalidate(ctx, userID); err != nil {
			return fmt.Errorf("invalidate roles: %w", err)
		}
		// The user-data projection embeds role names, so it goes stale too.
		if err := c.Users.InvalidateByID(ctx, userID); err != nil {
			return fmt.Errorf("invalidate user data: %w", err)
		}
		log.Printf("auth-consumer: invalidated role and user data caches user_id=%s", ev.UserID)
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}
