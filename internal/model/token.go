package model

import (
	"time"

	"github.com/google/uuid"
)

// SingleUseToken models a row in either the `email_verification_tokens` or
// the `password_reset_tokens` table; the two share a column layout. The
// token string is high-entropy random data, unique per table. ConsumedAt is
// the verification timestamp for verification tokens and the used-at
// timestamp for reset tokens; once set, every further validation fails.
//
// Fields:
//  ID         – primary key (CHAR(36) UUID).
//  UserID     – owner of the token.
//  Token      – unique URL-safe random string (256 bits of entropy).
//  ExpiresAt  – after this instant the token is unusable.
//  ConsumedAt – when the token was consumed (null while still usable).
//  CreatedAt  – timestamp of creation.
type SingleUseToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Token      string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// IsConsumed reports whether the token has already been used.
func (t SingleUseToken) IsConsumed() bool { return t.ConsumedAt != nil }

// IsExpired reports whether the token is past its expiry at the given instant.
func (t SingleUseToken) IsExpired(now time.Time) bool { return now.After(t.ExpiresAt) }
