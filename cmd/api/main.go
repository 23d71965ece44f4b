package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"surveillance_portal_backend/internal/access"
	accesshandler "surveillance_portal_backend/internal/access/handler"
	"surveillance_portal_backend/internal/adapters/storage"
	"surveillance_portal_backend/internal/auth"
	"surveillance_portal_backend/internal/events"
	apphttp "surveillance_portal_backend/internal/http"
	"surveillance_portal_backend/internal/http/router"
	"surveillance_portal_backend/internal/leads"
	leadsrepository "surveillance_portal_backend/internal/leads/repository"
	"surveillance_portal_backend/internal/notification"
	"surveillance_portal_backend/internal/risk"
	"surveillance_portal_backend/platform/config"
	"surveillance_portal_backend/platform/db"
	"surveillance_portal_backend/platform/logger"
	"surveillance_portal_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Redis cache for risk profile reads. Optional: without it every read
	// hits the database.
	var riskCache *redis.Client
	if cfg.GetRedisURL() != "" {
		opt, err := redis.ParseURL(cfg.GetRedisURL())
		if err != nil {
			log.Error("invalid redis url", "error", err)
			panic("invalid redis url: " + err.Error())
		}
		riskCache = redis.NewClient(opt)
		defer riskCache.Close()
	} else {
		log.Warn("REDIS_URL not configured; risk profile cache disabled")
	}

	// Storage service for evidence uploads (MinIO). Optional: without it the
	// evidence endpoints are not mounted.
	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, minioSvc, "evidence", cfg.GetMinioBucketEvidence())
		storageSvc = minioSvc
		log.Info("storage service initialized", "evidenceBucket", cfg.GetMinioBucketEvidence())
	} else {
		log.Warn("MinIO not configured; evidence uploads disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	accessSvc, err := access.NewService(ctx, access.NewRepo(pool), log)
	if err != nil {
		log.Error("failed to initialize access service", "error", err)
		panic("failed to initialize access service: " + err.Error())
	}
	accessModule := accesshandler.NewModule(accessSvc)

	authModule := auth.NewModule(pool, cfg, log, val)
	leadsModule := leads.NewModule(pool, accessSvc, eventBus, storageSvc, cfg.GetMinioBucketEvidence(), cfg.AppBaseURL, log, val)
	riskModule := risk.NewModule(pool, leadsrepository.New(pool, log), riskCache, cfg.GetRiskCacheTTL(), eventBus, log)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationSvc := notification.NewService(notification.NewSMTPSender(cfg), cfg, log)
	notificationSvc.RegisterEventHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			leadsModule,
			riskModule,
			accessModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
