package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"disclosure-service/internal/ai"
	"disclosure-service/internal/handler"
	"disclosure-service/internal/job"
	"disclosure-service/internal/security"
	"disclosure-service/internal/store"
	"disclosure-service/pkg/config"
	"disclosure-service/pkg/database"
	"disclosure-service/pkg/jwtutil"
	"disclosure-service/pkg/logger"
	"disclosure-service/prometheus"

	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "1.0.0"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync() //nolint:errcheck
	log.Info("Starting disclosure service...", cfg.LogFields()...)
	if cfg.JWT.GeneratedKey {
		log.Warn("JWT_SECRET not set, using a random per-process signing key; sessions end on restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("Failed to close store", zap.Error(err))
		}
	}()

	hasher, err := security.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.HashConcurrency)
	if err != nil {
		log.Fatal("Failed to initialize password hasher", zap.Error(err))
	}

	if cfg.SeedDemo {
		seeded, err := store.Seed(ctx, st, hasher)
		if err != nil {
			log.Fatal("Failed to seed demo data", zap.Error(err))
		}
		log.Info("Demo data seeded",
			zap.String("system_enterprise_id", seeded.SystemEnterpriseID),
			zap.String("demo_enterprise_id", seeded.DemoEnterpriseID))
	}

	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
		ResetTTL:        cfg.JWT.ResetTTL,
	})
	prometheus.SetInfo(cfg.ServiceName, version, cfg.Store.Driver)

	h := handler.NewHandler(st, hasher, tokens, ai.NewTemplateProvider(), handler.Options{
		Version:          version,
		ExposeResetToken: cfg.Auth.ExposeResetToken,
		DefaultPassword:  cfg.Auth.DefaultPassword,
	})
	e := handler.NewRouter(h, log, cfg.Server.BodyLimit)

	scheduler := job.NewScheduler(st, cfg.Jobs, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	log.Info("Server exited")
}

func openStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		db, err := database.InitDB(&cfg.Store, log)
		if err != nil {
			return nil, err
		}
		gormStore, err := store.NewGormStore(db, store.SystemClock)
		if err != nil {
			_ = database.Close(db)
			return nil, err
		}
		log.Info("Database connection established", zap.String("dsn", database.DSN(cfg.Store.Name)))
		return gormStore, nil
	default:
		return store.NewMemoryStore(store.SystemClock), nil
	}
}
