package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/busreg/internal/authority"
	"github.com/JonMunkholm/busreg/internal/cache"
	"github.com/JonMunkholm/busreg/internal/config"
	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/logging"
	"github.com/JonMunkholm/busreg/internal/scanner"
	"github.com/JonMunkholm/busreg/internal/store"
	"github.com/JonMunkholm/busreg/internal/web"
	"github.com/JonMunkholm/busreg/internal/web/middleware"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"submission_max_concurrent", cfg.Submission.MaxConcurrent,
		"scanner_enabled", cfg.Scanner.Enabled,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx, pool); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	st := store.New(pool)
	checks := map[string]web.HealthChecker{"database": st}

	rdb, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	var lookupCache authority.Cache
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = rdb
		if cfg.Authority.CacheTTL > 0 {
			lookupCache = authority.NewRedisCache(rdb.Client, cfg.Authority.CacheTTL)
		}
	}

	var avScanner core.Scanner = scanner.NoopScanner{}
	if cfg.Scanner.Enabled {
		s3Scanner, err := scanner.New(scanner.NewS3Client(cfg.Scanner), cfg.Scanner)
		if err != nil {
			slog.Error("failed to create virus scanner", "error", err)
			os.Exit(1)
		}
		avScanner = s3Scanner
	} else {
		slog.Warn("virus scanning disabled, every upload is treated as clean")
	}

	metrics := core.NewMetrics(prometheus.DefaultRegisterer)

	service, err := core.NewService(core.Dependencies{
		Scanner:   avScanner,
		Authority: authority.New(cfg.Authority, lookupCache),
		Staging:   st,
		Upserter:  st,
		Reports:   st,
		Searcher:  st,
		Metrics:   metrics,
	}, core.ServiceConfig{
		Encodings:          cfg.Submission.Encodings,
		DefaultTrafficArea: cfg.Submission.DefaultTrafficArea,
		Timeout:            cfg.Submission.Timeout,
		MaxConcurrent:      cfg.Submission.MaxConcurrent,
		MaxWait:            cfg.Submission.MaxWaitTime,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	maintenance := core.NewMaintenance(st, st, metrics, core.MaintenanceConfig{
		Schedule:        cfg.Maintenance.Schedule,
		ReportRetention: cfg.Maintenance.ReportRetention,
		StaleBatchAge:   cfg.Maintenance.StaleBatchAge,
	}, slog.Default())
	if err := maintenance.Start(); err != nil {
		slog.Error("failed to start maintenance scheduler", "error", err)
		os.Exit(1)
	}

	validator, err := middleware.NewTokenValidator(cfg.Auth)
	if err != nil {
		slog.Error("failed to create token validator", "error", err)
		os.Exit(1)
	}

	server, err := web.NewServer(service, cfg, web.Options{
		Validator: validator,
		Resolver:  store.NewDirectory(pool),
		Checks:    checks,
		Gatherer:  prometheus.DefaultGatherer,
	})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		maintenance.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		gracefulShutdown(shutdownCtx, service, server)
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
