package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lakho/ecommerce-webservices/internal/middleware"
	"github.com/lakho/ecommerce-webservices/internal/service"
)

// ProfileHandler exposes the authenticated caller's own profile. Reads are
// served cache-aside from the user-data cache; writes go to the database
// and invalidate the cache through the event queue.
type ProfileHandler struct {
	Svc *service.UserService
}

func NewProfileHandler(svc *service.UserService) *ProfileHandler {
	return &ProfileHandler{Svc: svc}
}

type updateProfileReq struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// GetProfile returns the caller's profile projection.
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	email, _ := c.Get(middleware.SubjectKey).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	data, err := h.Svc.Profile(ctx, email)
	if errors.Is(err, service.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load profile failed"})
	}
	return c.JSON(http.StatusOK, data)
}

// UpdateProfile changes the caller's optional name fields.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	email, _ := c.Get(middleware.SubjectKey).(string)

	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Svc.UpdateProfile(ctx, email, req.FirstName, req.LastName)
	if errors.Is(err, service.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated"})
}
