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

	"dialin-bridge/internal/audit"
	"dialin-bridge/internal/auth"
	"dialin-bridge/internal/conferencectl"
	"dialin-bridge/internal/config"
	"dialin-bridge/internal/directory"
	"dialin-bridge/internal/httpapi"
	"dialin-bridge/internal/presence"
	"dialin-bridge/internal/registry"
	"dialin-bridge/internal/ringing"
	"dialin-bridge/internal/rooms"
	"dialin-bridge/internal/stats"
	"dialin-bridge/internal/voice"
	"dialin-bridge/pkg/logger"
	"dialin-bridge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional env-file; real deployments set env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

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

	store := directory.NewPostgresStore(db)
	if err := store.EnsureSchema(rootCtx); err != nil {
		log.Error("directory schema init failed", "err", err)
		os.Exit(1)
	}
	liveCalls := registry.NewPostgresRegistry(db)
	if err := liveCalls.EnsureSchema(rootCtx); err != nil {
		log.Error("registry schema init failed", "err", err)
		os.Exit(1)
	}
	ringingStore := ringing.NewRedisStore(rdb, 0)

	auditRepo := audit.NewPostgresRepo(db)
	if err := auditRepo.EnsureSchema(rootCtx); err != nil {
		log.Error("audit schema init failed", "err", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	monitor, err := stats.NewMonitor(promRegistry)
	if err != nil {
		log.Error("metrics init failed", "err", err)
		os.Exit(1)
	}

	sambaOpts := []rooms.SambaOption{}
	if !cfg.Samba.SendCallerNumber {
		sambaOpts = append(sambaOpts, rooms.WithoutCallerNumbers())
	}
	notifier := rooms.NewSambaClient(cfg.Samba.BaseURL, cfg.Samba.DeveloperKey, sambaOpts...)

	reconciler := presence.NewReconciler(store, liveCalls, notifier, log, presence.WithMonitor(monitor))
	machine := voice.NewStateMachine(store, liveCalls, ringingStore, reconciler, monitor)

	webhook := voice.WebhookHandler{
		Machine:   machine,
		Validator: voice.NewSinchSignatureValidator(cfg.Sinch.ApplicationKey, cfg.Sinch.ApplicationSecret),
		Monitor:   monitor,
	}
	api := httpapi.Handlers{
		Directory:  store,
		Registry:   liveCalls,
		Conference: conferencectl.NewSinchClient(cfg.SinchBaseURL(), cfg.Sinch.ApplicationKey, cfg.Sinch.ApplicationSecret),
		Audit:      audit.NewService(auditRepo),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, cfg, db, promRegistry, webhook, api, authManager)

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
	// Let in-flight room notifications finish before the process exits.
	if err := reconciler.Close(shutdownCtx); err != nil {
		log.Warn("notification drain interrupted", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
