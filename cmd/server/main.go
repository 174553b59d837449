package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/lakho/ecommerce-webservices/internal/cache"
	"github.com/lakho/ecommerce-webservices/internal/config"
	"github.com/lakho/ecommerce-webservices/internal/database"
	"github.com/lakho/ecommerce-webservices/internal/handler"
	"github.com/lakho/ecommerce-webservices/internal/queue"
	"github.com/lakho/ecommerce-webservices/internal/repository"
	"github.com/lakho/ecommerce-webservices/internal/router"
	"github.com/lakho/ecommerce-webservices/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		// Without Redis no bearer token can be honored: the gate consults
		// the revocation cache before anything else.
		log.Fatal("redis unavailable; refusing to start")
	}
	store := cache.NewStore(rdb)

	users := repository.NewUserRepo(db)
	verifyTokens := repository.NewEmailVerificationTokenRepo(db)
	resetTokens := repository.NewPasswordResetTokenRepo(db)

	cacheTTL := time.Duration(cfg.CacheTTLHours) * time.Hour
	tokenCache := cache.NewTokenCache(store)
	roleCache := cache.NewRoleCache(store, users, cacheTTL)
	userCache := cache.NewUserDataCache(store, cacheTTL)

	events := queue.NewAMQPPublisher()
	mailer := service.NewMailer(service.LogEmailSender{}, cfg.FrontendURL, cfg.FromName)

	authSvc := service.NewAuthService(cfg, users, verifyTokens, resetTokens,
		tokenCache, roleCache, userCache, events, mailer)
	userSvc := service.NewUserService(users, userCache, events)

	// Cache invalidation and workflow emails run on the consumer, off the
	// request threads and strictly after the publishing write committed.
	consumer := queue.NewConsumer(roleCache, userCache, mailer)
	go consumer.Start()

	go sweepExpiredTokens(cfg, verifyTokens, resetTokens)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, cfg, config.LoadRateLimitConfig(), rdb, tokenCache,
		handler.NewAuthHandler(authSvc),
		handler.NewProfileHandler(userSvc),
		handler.NewAdminHandler(userSvc))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// sweepExpiredTokens periodically deletes verification and reset tokens
// past their expiry. Expired rows are already unusable; this only keeps
// the tables from growing without bound.
func sweepExpiredTokens(cfg config.Config, repos ...*repository.SingleUseTokenRepo) {
	interval := time.Duration(cfg.SweepIntervalMin) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		now := time.Now().UTC()
		var total int64
		for _, r := range repos {
			n, err := r.SweepExpired(ctx, now)
			if err != nil {
				log.Printf("token-sweep: %v", err)
				continue
			}
			total += n
		}
		cancel()
		if total > 0 {
			log.Printf("token-sweep: removed %d expired tokens", total)
		}
	}
}
