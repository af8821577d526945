package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/petcare-identity/internal/api/http"
	"github.com/spec-kit/petcare-identity/internal/api/http/handlers"
	"github.com/spec-kit/petcare-identity/internal/auth"
	"github.com/spec-kit/petcare-identity/internal/config"
	"github.com/spec-kit/petcare-identity/internal/events"
	"github.com/spec-kit/petcare-identity/internal/observability"
	"github.com/spec-kit/petcare-identity/internal/persistence"
	"github.com/spec-kit/petcare-identity/internal/repository"
	"github.com/spec-kit/petcare-identity/internal/service"
	"github.com/spec-kit/petcare-identity/internal/worker"
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

	var (
		identityRepo     repository.IdentityRepository
		registrationRepo repository.RegistrationRepository
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		identityRepo = repository.NewIdentityRepository(pg.PoolHandle())
		registrationRepo = repository.NewRegistrationRepository(pg.PoolHandle())
	} else {
		store := repository.NewMemoryStore()
		identityRepo = store.Identities()
		registrationRepo = store.Registrations()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		mongo.Close(closeCtx)
	}()

	var documents service.DocumentStore
	if store := persistence.NewGridFSDocumentStore(mongo, cfg.Mongo.Bucket); store != nil {
		documents = store
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	var limiter *auth.LoginLimiter
	if redis.Enabled() {
		limiter = auth.NewLoginLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow(), logger)
	}

	identityService := service.NewIdentityService(identityRepo, auth.NewPasswordHasher(cfg.Auth.BcryptCost), logger)
	authService := service.NewAuthService(service.AuthDependencies{
		Identities: identityService,
		Tokens:     tokens,
		Limiter:    limiter,
		Override:   cfg.Admin,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	if cfg.Admin.Enabled() {
		logger.Warn("admin override login is enabled", zap.String("username", cfg.Admin.Username))
	}
	registrationService := service.NewRegistrationService(service.RegistrationDependencies{
		Registrations: registrationRepo,
		Identities:    identityService,
		Documents:     documents,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Config:        cfg.Registration,
		Logger:        logger,
	})
	adminService := service.NewAdminService(identityRepo, registrationRepo, dispatcher, logger)

	app := httptransport.NewApp(httptransport.ServerConfig{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes,
		Timeout:   cfg.App.RequestTimeout(),
		Logger:    logger,
		Metrics:   metrics,
	}, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis, Optional: true},
			handlers.Dependency{Name: "mongo", Pinger: mongo, Optional: true},
		),
		Auth:           handlers.NewAuthHandler(authService, identityService),
		Registrations:  handlers.NewRegistrationsHandler(registrationService),
		Admin:          handlers.NewAdminHandler(registrationService, adminService),
		Directory:      handlers.NewDirectoryHandler(identityService, authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, logger, metrics),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
