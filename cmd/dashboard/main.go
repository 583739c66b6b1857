package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/platecheck/internal/application"
	"github.com/bryanwahyu/platecheck/internal/application/review"
	"github.com/bryanwahyu/platecheck/internal/config"
	"github.com/bryanwahyu/platecheck/internal/domain/results"
	mysqlp "github.com/bryanwahyu/platecheck/internal/infra/db/mysql"
	"github.com/bryanwahyu/platecheck/internal/infra/db/postgres"
	"github.com/bryanwahyu/platecheck/internal/infra/httpserver"
	"github.com/bryanwahyu/platecheck/internal/infra/storage"
	"github.com/bryanwahyu/platecheck/internal/middleware"
)

func main() {
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal("config load error", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("timezone error", zap.Error(err))
	}

	ctx := context.Background()

	db, repo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("database connect error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()

	images, err := openImages(ctx, cfg)
	if err != nil {
		logger.Fatal("image store init error", zap.String("backend", cfg.Images.Backend), zap.Error(err))
	}

	logger.Info("reviewed rows counted by",
		zap.String("reviewed_by", string(cfg.Review.ReviewedBy)),
	)
	svc := review.NewService(repo, application.SystemClock{}, cfg.Review.ReviewedBy, logger)

	health := map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: db}}
	if hc, ok := images.(middleware.HealthChecker); ok {
		health["images"] = hc
	}

	opts := httpserver.Options{
		Service:     svc,
		Images:      images,
		Logger:      logger,
		Metrics:     middleware.NewMetrics(),
		Location:    loc,
		Health:      health,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	opts.RateLimit.Capacity = cfg.Server.RateLimit.Capacity
	opts.RateLimit.RefillPerSec = cfg.Server.RateLimit.RefillPerSec

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpserver.NewRouter(opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openRepository(ctx context.Context, cfg *config.Config) (*sql.DB, results.Repository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		return db, postgres.NewResultRepository(db), nil
	default:
		if cfg.Database.Migrate {
			if err := mysqlp.Migrate(ctx, cfg.MySQLMigrateDSN()); err != nil {
				return nil, nil, err
			}
		}
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		return db, mysqlp.NewResultRepository(db), nil
	}
}

func openImages(ctx context.Context, cfg *config.Config) (results.ImageStore, error) {
	if cfg.Images.Backend == "minio" {
		return storage.NewMinio(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
	}
	return storage.NewLocal(cfg.Images.Root)
}
