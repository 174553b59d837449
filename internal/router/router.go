package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/lakho/ecommerce-webservices/internal/config"
	"github.com/lakho/ecommerce-webservices/internal/handler"
	"github.com/lakho/ecommerce-webservices/internal/middleware"
	"github.com/lakho/ecommerce-webservices/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the authentication endpoints and the protected
// consumer/admin surfaces. The /api/auth group sits behind the Redis
// token-bucket limiter; every /api route behind it passes through the
// authentication gate, which checks the revocation cache before the
// token's signature.
func RegisterAuth(
	e *echo.Echo,
	cfg config.Config,
	rlCfg config.RateLimitConfig,
	rdb *redis.Client,
	tokens middleware.TokenLiveness,
	auth *handler.AuthHandler,
	profile *handler.ProfileHandler,
	admin *handler.AdminHandler,
) {
	g := e.Group("/api/auth", middleware.NewTokenBucket(rlCfg, rdb))
	g.POST("/register", auth.Register)
	g.POST("/login", auth.Login)
	g.POST("/refresh", auth.Refresh)
	g.POST("/verify-email", auth.VerifyEmail)
	g.POST("/forgot-password", auth.ForgotPassword)
	g.POST("/reset-password", auth.ResetPassword)
	// Logout reads the bearer itself so it works even for tokens the gate
	// would already refuse (e.g. just-expired ones being cleaned up).
	g.POST("/logout", auth.Logout)

	protected := e.Group("/api", middleware.Authenticate(cfg.JWTSecret, tokens))

	consumer := protected.Group("/consumer", middleware.RequireRole(model.RoleConsumer, model.RoleStoreOwner, model.RoleAdmin))
	consumer.GET("/profile", profile.GetProfile)
	consumer.PUT("/profile", profile.UpdateProfile)

	adm := protected.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	adm.GET("/users", admin.ListUsers)
	adm.PUT("/users/:id/roles", admin.UpdateUserRoles)
	adm.DELETE("/users/:id", admin.DeleteUser)
}
