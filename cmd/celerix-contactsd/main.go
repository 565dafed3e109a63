// Command celerix-contactsd serves the Celerix Contacts HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/api"
	"github.com/celerix-dev/celerix-contacts/internal/config"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/logging"
	"github.com/celerix-dev/celerix-contacts/internal/seed"
	"github.com/celerix-dev/celerix-contacts/internal/server"
	"github.com/celerix-dev/celerix-contacts/internal/session"
	"github.com/celerix-dev/celerix-contacts/internal/storage"
	"github.com/celerix-dev/celerix-contacts/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("daemon failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting celerix contacts daemon", zap.String("storage", cfg.Storage), zap.String("addr", cfg.HTTPAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("close storage", zap.Error(err))
		}
	}()

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		if secret, err = session.RandomSecret(); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn("no session secret configured; sessions will not survive a restart",
			zap.String("env", config.Prefix+"SESSION_SECRET"))
	}
	sessions, err := session.NewManager(secret, cfg.SessionTTL, cfg.RememberTTL)
	if err != nil {
		return err
	}
	accounts, err := account.NewService(backend, sessions, logger)
	if err != nil {
		return err
	}
	seeder := seed.New(backend, accounts, nil, logger)

	if cfg.SeedDemo {
		if _, err := seeder.SeedDemoUserIfEmpty(ctx); err != nil {
			return fmt.Errorf("seed demo user: %w", err)
		}
		if err := seeder.EnsureSandbox(ctx); err != nil {
			return fmt.Errorf("seed sandbox: %w", err)
		}
	}

	if cfg.LogFormat != "console" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := &api.Handler{
		Contacts:      contact.NewService(backend, cfg.PageSize),
		Accounts:      accounts,
		Sandbox:       seeder,
		Logger:        logging.Component(logger, "api"),
		SecureCookies: cfg.TLS,
	}
	srv := server.New(server.NewRouter(h, server.Options{CORSOrigin: cfg.CORSOrigin, Logger: logger}), logger)

	if cfg.TLS {
		logger.Info("generating self-signed certificate")
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		srv.SetCertificate(cert)
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.Listen(cfg.HTTPAddr) }()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("stop http server: %w", err)
	}
	if err := <-errs; err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
