package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lakho/ecommerce-webservices/internal/model"
	"github.com/lakho/ecommerce-webservices/internal/utils"
)

// Failure kinds for single-use token validation. The three cases are kept
// distinct because the user-facing messaging differs: "link already used"
// is not "link expired".
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenUsed     = errors.New("token already used")
	ErrTokenExpired  = errors.New("token expired")
)

// SingleUseTokenRepo persists single-use expiring tokens. The same
// implementation backs both the email-verification and the password-reset
// table; the two tables share a column layout and differ only in name.
type SingleUseTokenRepo struct {
	DB    *sql.DB
	table string
}

// NewEmailVerificationTokenRepo returns the store backing email
// verification links.
func NewEmailVerificationTokenRepo(db *sql.DB) *SingleUseTokenRepo {
	return &SingleUseTokenRepo{DB: db, table: "email_verification_tokens"}
}

// NewPasswordResetTokenRepo returns the store backing password reset links.
func NewPasswordResetTokenRepo(db *sql.DB) *SingleUseTokenRepo {
	return &SingleUseTokenRepo{DB: db, table: "password_reset_tokens"}
}

// Issue deletes any unconsumed token for the user and inserts a fresh one,
// in a single transaction. At most one usable token per user per kind
// exists at any time; issuing a new link kills the previous one.
func (r *SingleUseTokenRepo) Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (model.SingleUseToken, error) {
	token, err := utils.NewSingleUseToken()
	if err != nil {
		return model.SingleUseToken{}, err
	}
	rec := model.SingleUseToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.SingleUseToken{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM "+r.table+" WHERE user_id=? AND consumed_at IS NULL",
		userID.String()); err != nil {
		return model.SingleUseToken{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+r.table+" (id, user_id, token, expires_at) VALUES (?,?,?,?)",
		rec.ID.String(), rec.UserID.String(), rec.Token, rec.ExpiresAt); err != nil {
		return model.SingleUseToken{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.SingleUseToken{}, err
	}
	return rec, nil
}

// Validate looks up a token string and checks that it is still usable.
// Fails with exactly one of ErrTokenNotFound, ErrTokenUsed or
// ErrTokenExpired.
func (r *SingleUseTokenRepo) Validate(ctx context.Context, token string) (model.SingleUseToken, error) {
	var (
		rec        model.SingleUseToken
		id, userID string
		consumedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token, expires_at, consumed_at, created_at FROM "+r.table+" WHERE token=? LIMIT 1",
		token).Scan(&id, &userID, &rec.Token, &rec.ExpiresAt, &consumedAt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SingleUseToken{}, ErrTokenNotFound
	}
	if err != nil {
		return model.SingleUseToken{}, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return model.SingleUseToken{}, err
	}
	if rec.UserID, err = uuid.Parse(userID); err != nil {
		return model.SingleUseToken{}, err
	}
	if consumedAt.Valid {
		rec.ConsumedAt = &consumedAt.Time
		return model.SingleUseToken{}, ErrTokenUsed
	}
	if rec.IsExpired(time.Now().UTC()) {
		return model.SingleUseToken{}, ErrTokenExpired
	}
	return rec, nil
}

// Consume marks a token as used. The update is conditioned on the row
// still being unconsumed, so of two concurrent consumers exactly one
// succeeds; the loser gets ErrTokenUsed.
func (r *SingleUseTokenRepo) Consume(ctx context.Context, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE "+r.table+" SET consumed_at=UTC_TIMESTAMP() WHERE token=? AND consumed_at IS NULL",
		token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero rows: either the token never existed or it was already consumed.
	var one int
	err = r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM "+r.table+" WHERE token=? LIMIT 1", token).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTokenNotFound
	}
	if err != nil {
		return err
	}
	return ErrTokenUsed
}

// SweepExpired bulk-deletes rows past expiry and returns how many were
// removed. Safe to run concurrently with Issue/Validate since expired rows
// are already unusable.
func (r *SingleUseTokenRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM "+r.table+" WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
