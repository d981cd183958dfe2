package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-gateway/internal/api/http"
	"github.com/spec-kit/auth-gateway/internal/api/http/handlers"
	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/observability"
	"github.com/spec-kit/auth-gateway/internal/persistence"
	"github.com/spec-kit/auth-gateway/internal/ratelimit"
	"github.com/spec-kit/auth-gateway/internal/repository"
	"github.com/spec-kit/auth-gateway/internal/service"
	"github.com/spec-kit/auth-gateway/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	directory := newDirectory(pg)
	if cfg.Auth.SeedDemoUsers {
		seedDemoUsers(ctx, directory, cfg.Auth.BcryptCost, logger)
	}

	verifier, err := auth.NewCredentialVerifier(directory, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to build credential verifier", zap.Error(err))
	}
	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to build token manager", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	deps := service.AuthDependencies{
		Verifier:   verifier,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}
	if cfg.RateLimit.Enabled && redis.Enabled() {
		deps.Limiter = ratelimit.New(redis.Client, ratelimit.Config{
			MaxAttempts: cfg.RateLimit.MaxLoginAttempts,
			Window:      cfg.RateLimit.Window(),
		})
	}
	authService := service.NewAuthService(deps)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), logger, metrics, dispatcher)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.CORS, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.App.Env, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    redis,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Info:           handlers.NewInfoHandler(cfg.App.Name, cfg.App.Version, cfg.App.Env),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("algorithm", tokens.Algorithm()),
			zap.Duration("token_ttl", tokens.TTL()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

type seedableDirectory interface {
	repository.UserDirectory
	repository.Seeder
}

// newDirectory prefers Postgres and falls back to process memory.
func newDirectory(pg *persistence.Postgres) seedableDirectory {
	if pg.Enabled() {
		return repository.NewPostgresDirectory(pg.PoolHandle())
	}
	return repository.NewMemoryDirectory()
}

func seedDemoUsers(ctx context.Context, directory repository.Seeder, cost int, logger *zap.Logger) {
	hash := func(p string) (string, error) { return auth.HashPassword(p, cost) }
	created, err := repository.SeedDemoUsers(ctx, directory, repository.DemoUsers, hash)
	if err != nil {
		logger.Fatal("failed to seed demo users", zap.Error(err))
	}
	logger.Info("demo users seeded", zap.Int("created", created))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
