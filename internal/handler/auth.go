package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/lakho/ecommerce-webservices/internal/repository"
	"github.com/lakho/ecommerce-webservices/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}
type loginReq struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type verifyEmailReq struct {
	Token string `json:"token"`
}
type forgotPasswordReq struct {
	Email string `json:"email"`
}
type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
type authResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register: create user and return tokens immediately. Self-registration
// as ADMIN is refused with a fixed message.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email and password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Svc.Register(ctx, req.Email, req.Password, normalizeRoles(req.Roles))
	switch {
	case errors.Is(err, service.ErrAdminRegistration):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot register with the administrative role"})
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, service.ErrUnknownRole), errors.Is(err, service.ErrPasswordPolicy):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}
	return c.JSON(http.StatusCreated, authResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Login: verify credentials and return a new pair. The error body never
// reveals whether the identifier or the password was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier and password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Svc.Login(ctx, req.Identifier, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, authResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh: rotate a live refresh token into a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if errors.Is(err, service.ErrInvalidToken) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, authResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// VerifyEmail: consume a verification token. The three failure kinds keep
// distinct statuses and messages; "already verified" is not "expired".
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.VerifyEmail(ctx, strings.TrimSpace(req.Token)); err != nil {
		return tokenLifecycleError(c, err, "verification token", "email already verified")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

// ForgotPassword: issue and send a reset link. The response is identical
// whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ForgotPassword(ctx, req.Email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send reset email"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if that account exists, a password reset email has been sent"})
}

// ResetPassword: consume a reset token and set the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and newPassword required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Svc.ResetPassword(ctx, strings.TrimSpace(req.Token), req.NewPassword)
	switch {
	case errors.Is(err, service.ErrPasswordPolicy):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reset token"})
	case err != nil:
		return tokenLifecycleError(c, err, "reset token", "reset token has already been used")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}

// Logout: revoke the bearer token from the Authorization header. A missing
// header is a no-op success, not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	var token string
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.Logout(ctx, token); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// tokenLifecycleError maps the single-use token failure kinds onto
// distinct statuses: unknown → 400, already consumed → 409, expired → 410.
func tokenLifecycleError(c echo.Context, err error, kind, usedMsg string) error {
	switch {
	case errors.Is(err, repository.ErrTokenNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + kind})
	case errors.Is(err, repository.ErrTokenUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": usedMsg})
	case errors.Is(err, repository.ErrTokenExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": kind + " has expired"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
