package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role names as stored in the `roles` reference table. ADMIN accounts are
// never self-service created; registration only accepts the other two.
const (
	RoleAdmin      = "ADMIN"
	RoleConsumer   = "CONSUMER"
	RoleStoreOwner = "STORE_OWNER"
)

// User represents a row in the `users` table. Email and username are each
// globally unique. PasswordHash is empty for accounts created through
// federated login only; such accounts cannot authenticate with a password.
//
// Fields:
//  ID                 – primary key (CHAR(36) UUID).
//  Email              – unique email address, stored lower-cased.
//  Username           – unique username; defaults to the email on registration.
//  PasswordHash       – bcrypt hash, empty for federated-only accounts.
//  FirstName          – optional profile field (nullable).
//  LastName           – optional profile field (nullable).
//  AccountExpired     – status flag; an expired account cannot log in.
//  AccountLocked      – status flag; a locked account cannot log in.
//  CredentialsExpired – status flag; expired credentials cannot log in.
//  Enabled            – master switch; disabled accounts cannot log in.
//  CreatedAt          – timestamp of creation.
//  UpdatedAt          – timestamp of last update.
type User struct {
	ID                 uuid.UUID
	Email              string
	Username           string
	PasswordHash       string
	FirstName          *string
	LastName           *string
	AccountExpired     bool
	AccountLocked      bool
	CredentialsExpired bool
	Enabled            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Role represents a row in the `roles` reference table. Users reference
// roles through the `user_roles` join table, unique on (user_id, role_id).
type Role struct {
	ID   uint8  // roles.id
	Name string // roles.name
}

// JoinRoleNames builds the comma-joined role claim embedded in JWTs.
func JoinRoleNames(roles []Role) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return strings.Join(names, ",")
}

// SplitRoleClaim is the inverse of JoinRoleNames. An empty claim yields an
// empty slice rather than [""].
func SplitRoleClaim(claim string) []string {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return nil
	}
	parts := strings.Split(claim, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CachedUserData is the ephemeral projection of a user stored in Redis under
// both an id key and an email key. It deliberately carries no password hash.
// Never the source of truth; reconstructible from the users table at any time.
type CachedUserData struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	Username           string    `json:"username"`
	FirstName          *string   `json:"first_name,omitempty"`
	LastName           *string   `json:"last_name,omitempty"`
	AccountExpired     bool      `json:"account_expired"`
	AccountLocked      bool      `json:"account_locked"`
	CredentialsExpired bool      `json:"credentials_expired"`
	Enabled            bool      `json:"enabled"`
	Roles              []string  `json:"roles"`
}

// NewCachedUserData builds the cache projection from a user row and its
// resolved roles.
func NewCachedUserData(u User, roles []Role) CachedUserData {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return CachedUserData{
		ID:                 u.ID,
		Email:              u.Email,
		Username:           u.Username,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		AccountExpired:     u.AccountExpired,
		AccountLocked:      u.AccountLocked,
		CredentialsExpired: u.CredentialsExpired,
		Enabled:            u.Enabled,
		Roles:              names,
	}
}
