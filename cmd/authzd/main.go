// Command authzd runs the case-management authorization service: it
// resolves caller identity from gateway headers or bearer tokens and
// evaluates permission checks against the record store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relexro/authz-core/internal/httpapi"
	"github.com/relexro/authz-core/internal/obs"
	"github.com/relexro/authz-core/pkg/auth"
	"github.com/relexro/authz-core/pkg/authz"
	"github.com/relexro/authz-core/pkg/config"
	"github.com/relexro/authz-core/pkg/store"
	"github.com/relexro/authz-core/pkg/store/cached"
	"github.com/relexro/authz-core/pkg/store/postgres"
)

// Config is the full service configuration, loaded from environment
// variables with an optional YAML file layer (AUTHZ_CONFIG_FILE).
type Config struct {
	Listen     string `yaml:"listen" env:"LISTEN" envDefault:":8080"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" envDefault:"info"`
	PolicyFile string `yaml:"policy_file" env:"POLICY_FILE"`

	// CacheEnabled wraps the record store in the redis read-through
	// cache.
	CacheEnabled bool `yaml:"cache_enabled" env:"CACHE_ENABLED"`

	Auth  auth.ValidatorConfig `yaml:"auth"`
	Store postgres.Config      `yaml:"store" env:"STORE_PG"`
	Cache cached.Config        `yaml:"cache"`
	HTTP  httpapi.Config       `yaml:"http"`
}

func main() {
	loader := config.New()
	if path := os.Getenv("AUTHZ_CONFIG_FILE"); path != "" {
		loader.WithFile(path)
	}
	cfg := config.MustLoad[Config](loader)

	logger := obs.NewLogger(cfg.LogLevel)
	obs.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := postgres.New(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to connect to record store", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	var records store.RecordStore = pg
	var cache *cached.Store
	if cfg.CacheEnabled {
		cache, err = cached.New(ctx, cfg.Cache, pg)
		if err != nil {
			logger.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer func() { _ = cache.Close() }()
		records = cache
	}

	validator, err := auth.NewValidator(cfg.Auth)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}
	resolver := auth.NewResolver(validator)

	policy := authz.DefaultPolicy()
	if cfg.PolicyFile != "" {
		overrides, err := authz.LoadOverridesFile(cfg.PolicyFile)
		if err != nil {
			logger.Error("failed to load policy overrides", "error", err)
			os.Exit(1)
		}
		policy = policy.Extend(overrides)
		logger.Info("policy overrides loaded", "path", cfg.PolicyFile)
	}

	dispatcher := authz.NewDispatcher(records, policy,
		authz.WithLogger(logger),
		authz.WithObserver(func(rt authz.ResourceType, allowed bool) {
			obs.ObserveDecision(string(rt), allowed)
		}),
	)

	api := httpapi.New(resolver, dispatcher, records, logger, cfg.HTTP)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("authzd listening", "addr", cfg.Listen, "cache", cfg.CacheEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
