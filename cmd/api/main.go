package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/api"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/booking"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/catalog"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/httpapi"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
	"github.com/Hariprasath006/Campus-Resource-Management/pkg/config"
	"github.com/Hariprasath006/Campus-Resource-Management/pkg/db"
	"github.com/Hariprasath006/Campus-Resource-Management/pkg/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	policy, err := booking.ParseAdminPolicy(cfg.Booking.AdminPolicy)
	if err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	var tokens api.TokenVerifier
	switch {
	case cfg.Auth.JWTSecret != "":
		tokens = identity.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	case cfg.IsProd():
		logger.Fatal("JWT_SECRET is required in prod")
	default:
		logger.Warn("JWT_SECRET not set; only dev identity headers are accepted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := httpapi.Dependencies{
		Cfg:         cfg,
		Logger:      logger,
		Tokens:      tokens,
		AdminPolicy: policy,
	}

	switch cfg.StoreDriver {
	case "memory":
		if cfg.IsProd() {
			logger.Fatal("STORE_DRIVER=memory is not allowed in prod")
		}
		deps.Bookings = booking.NewMemoryStore()
		deps.Resources = catalog.NewMemoryRepository()
		logger.Warn("using in-memory store; data is lost on restart")
	case "postgres":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			logger.Fatal("db open", zap.Error(err))
		}
		defer conn.Close()

		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
				logger.Fatal("migrate", zap.Error(err))
			}
		}
		deps.Bookings = booking.NewPostgresStore(conn)
		deps.Resources = catalog.NewPostgresRepository(conn)
	default:
		logger.Fatal("unknown STORE_DRIVER", zap.String("driver", cfg.StoreDriver))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.Info("http listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("env", cfg.AppEnv),
			zap.String("store", cfg.StoreDriver),
			zap.String("admin_booking_policy", string(policy)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http serve", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
