package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"officiating-platform/internal/audit"
	"officiating-platform/internal/auth"
	"officiating-platform/internal/authz"
	"officiating-platform/internal/config"
	"officiating-platform/internal/metrics"
	"officiating-platform/pkg/logger"
	"officiating-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.Init()

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Audit storage is provisioned before any traffic so the write path
	// carries no existence checks.
	auditStore := audit.NewPostgresStore(db, cfg.Audit.MaxPayloadBytes)
	if err := auditStore.Provision(rootCtx); err != nil {
		log.Error("audit schema provisioning failed", "err", err)
		os.Exit(1)
	}

	recorder := audit.NewRecorder(auditStore, log.With("component", "audit"), audit.RecorderOptions{
		QueueSize: cfg.Audit.QueueSize,
	})

	retention := audit.NewRetentionJob(auditStore, audit.RetentionPolicy{
		RetentionDays:  cfg.Audit.RetentionDays,
		BatchSize:      cfg.Audit.BatchSize,
		ArchiveEnabled: cfg.Audit.ArchiveEnabled,
		ArchiveDir:     cfg.Audit.ArchiveDir,
		BatchPause:     100 * time.Millisecond,
	}, utils.NewJobLock(rdb), log.With("component", "retention"))
	retention.Start(rootCtx, cfg.Audit.CleanupInterval)

	pdpClient := authz.NewClient(cfg.PDP)
	guard := &authz.Guard{
		Client:   pdpClient,
		Monitor:  authz.NewMonitor(pdpClient, cfg.PDP.HealthWindow, log.With("component", "pdp-monitor")),
		Resolver: authz.NewResolver(db),
		Audit:    recorder,
		Fallback: authz.Fallback{FailClosed: cfg.PDP.FailClosed},
		Log:      log.With("component", "authz"),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, authManager, guard, recorder)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Flush pending audit records before the process exits.
	if err := recorder.Close(shutdownCtx); err != nil {
		log.Error("audit recorder drain failed", "err", err)
	}
}
