package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lakho/ecommerce-webservices/internal/model"
	"github.com/lakho/ecommerce-webservices/internal/service"
)

// AdminHandler exposes user management to ADMIN callers. Role changes and
// deletions publish invalidation events so the caches catch up after the
// write commits.
type AdminHandler struct {
	Svc *service.UserService
}

func NewAdminHandler(svc *service.UserService) *AdminHandler {
	return &AdminHandler{Svc: svc}
}

type userSummary struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Enabled   bool    `json:"enabled"`
}

type updateRolesReq struct {
	Roles []string `json:"roles"`
}

// ListUsers returns every account, without password hashes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Svc.ListUsers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		out = append(out, toSummary(u))
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateUserRoles replaces a user's role set.
func (h *AdminHandler) UpdateUserRoles(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateRolesReq
	if err := c.Bind(&req); err != nil || len(req.Roles) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "roles required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Svc.UpdateUserRoles(ctx, id, normalizeRoles(req.Roles))
	switch {
	case errors.Is(err, service.ErrUnknownRole):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update roles failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "roles updated"})
}

// DeleteUser removes an account and its role associations.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Svc.DeleteUser(ctx, id)
	if errors.Is(err, service.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func toSummary(u model.User) userSummary {
	return userSummary{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Enabled:   u.Enabled,
	}
}
