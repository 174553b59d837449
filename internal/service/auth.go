// Package service contains the orchestration layer between the HTTP
// handlers and the repositories/caches. AuthService is the state-machine
// core of the system: credential verification, token issuance and
// rotation, the single-use token workflows and logout.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/lakho/ecommerce-webservices/internal/config"
	"github.com/lakho/ecommerce-webservices/internal/model"
	"github.com/lakho/ecommerce-webservices/internal/queue"
	"github.com/lakho/ecommerce-webservices/internal/repository"
	"github.com/lakho/ecommerce-webservices/internal/utils"
)

// Service-level failure kinds. Credential failures are deliberately
// collapsed into ErrInvalidCredentials: the caller must not learn which
// half (identifier or password) was wrong, nor whether the account exists
// or is disabled.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAdminRegistration  = errors.New("cannot register with the administrative role")
	ErrUnknownRole        = errors.New("unknown role")
	ErrPasswordPolicy     = errors.New("password must be at least 8 characters with upper, lower and digit")
	ErrUserNotFound       = errors.New("user not found")
)

// CredentialStore is the slice of the user repository the auth flows need.
type CredentialStore interface {
	Create(ctx context.Context, u model.User, roleNames []string) (model.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetRoles(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// SingleUseTokenStore issues, validates and consumes one kind of
// single-use token (verification or reset).
type SingleUseTokenStore interface {
	Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (model.SingleUseToken, error)
	Validate(ctx context.Context, token string) (model.SingleUseToken, error)
	Consume(ctx context.Context, token string) error
}

// TokenCache is the revocation side-index consulted by the request gate.
type TokenCache interface {
	RecordAccess(ctx context.Context, token, email string, ttl time.Duration) error
	RecordRefresh(ctx context.Context, token, email string, ttl time.Duration) error
	IsRefreshLive(ctx context.Context, token string) bool
	RevokeAccess(ctx context.Context, token string) error
	RevokeRefresh(ctx context.Context, token string) error
}

// RoleWarmer populates the role cache after login.
type RoleWarmer interface {
	Warm(ctx context.Context, userID uuid.UUID, roles []model.Role)
}

// UserCacheWriter warms and invalidates the user-data projection.
type UserCacheWriter interface {
	Cache(ctx context.Context, data model.CachedUserData) error
	InvalidateByEmail(ctx context.Context, email string) error
}

// TokenPair is the response of every flow that establishes a session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService orchestrates register, login, refresh, the email-verification
// and password-reset workflows, and logout.
type AuthService struct {
	cfg          config.Config
	users        CredentialStore
	verifyTokens SingleUseTokenStore
	resetTokens  SingleUseTokenStore
	tokens       TokenCache
	roleCache    RoleWarmer
	userCache    UserCacheWriter
	events       queue.Publisher
	mailer       *Mailer
}

func NewAuthService(
	cfg config.Config,
	users CredentialStore,
	verifyTokens, resetTokens SingleUseTokenStore,
	tokens TokenCache,
	roleCache RoleWarmer,
	userCache UserCacheWriter,
	events queue.Publisher,
	mailer *Mailer,
) *AuthService {
	return &AuthService{
		cfg:          cfg,
		users:        users,
		verifyTokens: verifyTokens,
		resetTokens:  resetTokens,
		tokens:       tokens,
		roleCache:    roleCache,
		userCache:    userCache,
		events:       events,
		mailer:       mailer,
	}
}

// Register creates a user with the requested roles and returns a fresh
// token pair. Administrative accounts are never self-service created.
// A verification email is triggered best-effort; its failure does not
// fail registration.
func (s *AuthService) Register(ctx context.Context, email, password string, roleNames []string) (TokenPair, error) {
	if len(roleNames) == 0 {
		roleNames = []string{model.RoleConsumer}
	}
	for _, name := range roleNames {
		switch name {
		case model.RoleAdmin:
			return TokenPair{}, ErrAdminRegistration
		case model.RoleConsumer, model.RoleStoreOwner:
		default:
			return TokenPair{}, fmt.Errorf("%w: %s", ErrUnknownRole, name)
		}
	}
	if err := checkPasswordPolicy(password); err != nil {
		return TokenPair{}, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return TokenPair{}, ErrEmailTaken
	}

	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		Email:        email,
		Username:     email,
		PasswordHash: hash,
		Enabled:      true,
	}, roleNames)
	if errors.Is(err, repository.ErrConflict) {
		return TokenPair{}, ErrEmailTaken
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("create user: %w", err)
	}
	log.Printf("auth: user registered user_id=%s email=%s", user.ID, user.Email)

	// Best-effort side path: issue the verification token and hand the
	// email off to the queue. Registration succeeds regardless.
	if rec, err := s.verifyTokens.Issue(ctx, user.ID, s.verifyTTL()); err != nil {
		log.Printf("auth: issue verification token failed user_id=%s: %v", user.ID, err)
	} else {
		ev := queue.NewEvent(queue.EventUserRegistered, user.ID.String())
		ev.Email = user.Email
		ev.Username = user.Username
		ev.VerificationToken = rec.Token
		if err := s.events.Publish(ctx, ev); err != nil {
			log.Printf("auth: publish user.registered failed user_id=%s: %v", user.ID, err)
		}
	}

	roles, err := s.users.GetRoles(ctx, user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("load roles: %w", err)
	}
	return s.issuePair(ctx, user.Email, model.JoinRoleNames(roles))
}

// Login verifies the identifier/password pair and mints a token pair.
// Every failure mode maps to ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (TokenPair, error) {
	user, err := s.users.FindByEmailOrUsername(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !canAuthenticate(user) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}

	roles, err := s.users.GetRoles(ctx, user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("load roles: %w", err)
	}

	pair, err := s.issuePair(ctx, user.Email, model.JoinRoleNames(roles))
	if err != nil {
		return TokenPair{}, err
	}
	log.Printf("auth: login succeeded user_id=%s email=%s", user.ID, user.Email)

	// Warm-up is pure optimization: off the request path, best-effort,
	// and a loss only costs the next reader a database round trip.
	go s.warmCaches(user, roles)

	return pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented
// token is rotated out: it is revoked before the replacement is minted,
// so a captured refresh token dies on its first use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	subject, _, err := utils.ValidateToken(s.cfg.JWTSecret, refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if !s.tokens.IsRefreshLive(ctx, refreshToken) {
		return TokenPair{}, ErrInvalidToken
	}

	user, err := s.users.FindByEmailOrUsername(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, ErrInvalidToken
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	// Claims are rebuilt from the current role associations, not copied
	// from the old token, so a role change takes effect on next refresh.
	roles, err := s.users.GetRoles(ctx, user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("load roles: %w", err)
	}

	if err := s.tokens.RevokeRefresh(ctx, refreshToken); err != nil {
		log.Printf("auth: revoke rotated refresh token failed email=%s: %v", user.Email, err)
	}
	log.Printf("auth: token refreshed user_id=%s email=%s", user.ID, user.Email)
	return s.issuePair(ctx, user.Email, model.JoinRoleNames(roles))
}

// VerifyEmail validates and consumes a verification token. The failure
// kinds (not found, already verified, expired) stay distinct.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	rec, err := s.verifyTokens.Validate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.verifyTokens.Consume(ctx, token); err != nil {
		return err
	}
	log.Printf("auth: email verified user_id=%s", rec.UserID)
	return nil
}

// ForgotPassword issues a reset token and emails it. An unknown email is
// logged and reported as success so the endpoint cannot be used to probe
// which accounts exist. The email send itself is the point of this flow,
// so its failure propagates.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmailOrUsername(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("auth: password reset requested for unknown account email=%s", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	rec, err := s.resetTokens.Issue(ctx, user.ID, s.resetTTL())
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, rec.Token); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	log.Printf("auth: password reset email sent user_id=%s email=%s", user.ID, user.Email)
	return nil
}

// ResetPassword consumes a reset token and replaces the password. The
// consume is the atomic gate: of two concurrent attempts with the same
// token, exactly one reaches the password update. Outstanding access
// tokens are not revoked; they are minutes-lived by configuration.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := checkPasswordPolicy(newPassword); err != nil {
		return err
	}
	rec, err := s.resetTokens.Validate(ctx, token)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, rec.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.resetTokens.Consume(ctx, token); err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	log.Printf("auth: password reset user_id=%s email=%s", user.ID, user.Email)

	ev := queue.NewEvent(queue.EventPasswordReset, user.ID.String())
	ev.Email = user.Email
	ev.Username = user.Username
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("auth: publish password.reset failed user_id=%s: %v", user.ID, err)
	}
	return nil
}

// Logout revokes the access token and drops the user-data cache entry for
// its subject. A missing token is a no-op, not an error; a token whose
// subject cannot be recovered still gets revoked.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		log.Printf("auth: logout without token")
		return nil
	}
	email := utils.ExtractSubject(s.cfg.JWTSecret, accessToken)

	if err := s.tokens.RevokeAccess(ctx, accessToken); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if email != "" {
		if err := s.userCache.InvalidateByEmail(ctx, email); err != nil {
			return fmt.Errorf("invalidate user data cache: %w", err)
		}
		log.Printf("auth: logout succeeded email=%s", email)
	} else {
		log.Printf("auth: logout succeeded (subject not recoverable from token)")
	}
	return nil
}

// issuePair mints and records an access/refresh pair for the subject.
// Recording failures are logged, not fatal: the worst case is a token the
// gate refuses, which degrades to reauthentication.
func (s *AuthService) issuePair(ctx context.Context, email, roleClaim string) (TokenPair, error) {
	access, err := utils.IssueToken(s.cfg.JWTSecret, email, roleClaim, s.accessTTL())
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.IssueToken(s.cfg.JWTSecret, email, roleClaim, s.refreshTTL())
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.RecordAccess(ctx, access.Token, email, time.Until(access.Exp)); err != nil {
		log.Printf("auth: record access token failed email=%s: %v", email, err)
	}
	if err := s.tokens.RecordRefresh(ctx, refresh.Token, email, time.Until(refresh.Exp)); err != nil {
		log.Printf("auth: record refresh token failed email=%s: %v", email, err)
	}
	return TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

func (s *AuthService) warmCaches(user model.User, roles []model.Role) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.roleCache.Warm(ctx, user.ID, roles)
	if err := s.userCache.Cache(ctx, model.NewCachedUserData(user, roles)); err != nil {
		log.Printf("auth: warm user data cache failed user_id=%s: %v", user.ID, err)
	}
}

func canAuthenticate(u model.User) bool {
	if u.PasswordHash == "" {
		// Federated-only account, no password to check.
		return false
	}
	return u.Enabled && !u.AccountLocked && !u.AccountExpired && !u.CredentialsExpired
}

func checkPasswordPolicy(password string) error {
	if len(password) < 8 {
		return ErrPasswordPolicy
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrPasswordPolicy
	}
	return nil
}

func (s *AuthService) accessTTL() time.Duration {
	return time.Duration(s.cfg.AccessTTLMin) * time.Minute
}

func (s *AuthService) refreshTTL() time.Duration {
	return time.Duration(s.cfg.RefreshTTLDays) * 24 * time.Hour
}

func (s *AuthService) verifyTTL() time.Duration {
	return time.Duration(s.cfg.VerifyTokenTTLHours) * time.Hour
}

func (s *AuthService) resetTTL() time.Duration {
	return time.Duration(s.cfg.ResetTokenTTLHours) * time.Hour
}
