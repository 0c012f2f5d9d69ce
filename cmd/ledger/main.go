package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/auth"
	"expenses/internal/backend"
	"expenses/internal/cli"
	"expenses/internal/config"
	apphttp "expenses/internal/http"
	"expenses/internal/ledger"
	"expenses/internal/log"
	"expenses/internal/password"
	"expenses/internal/services"
	"expenses/internal/token"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.SlogLevel(), log.ComponentApp, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.ShutdownContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	tokens, err := token.NewService(token.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})
	if err != nil {
		return err
	}

	ready := make([]apphttp.ReadinessCheck, 0, len(res.Checks))
	for _, c := range res.Checks {
		ready = append(ready, apphttp.ReadinessCheck{Name: c.Name, Check: c.Ping})
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:     auth.NewService(res.Store, password.NewBcryptHasher(cfg.BcryptCost), tokens),
		Expenses: services.NewExpenseService(res.Store, res.Publisher),
		Ledger:   ledger.NewEngine(res.Store, cfg.MaxPageSize),
		Logger:   logger.WithComponent(log.ComponentHTTP),
		Ready:    ready,
	}, apphttp.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		RateLimitRPM:    cfg.RateLimitRPM,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expenses server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events_enabled", res.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
