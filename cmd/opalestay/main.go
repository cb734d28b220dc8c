package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"opalestay/internal/infra/config"
	ginserver "opalestay/internal/infra/http/gin"
	"opalestay/internal/infra/obs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)

	var wg sync.WaitGroup
	for name, runner := range app.runners {
		wg.Add(1)
		go func(name string, runner func(context.Context) error) {
			defer wg.Done()
			logger.Info("background runner started", "runner", name)
			if err := runner(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background runner stopped", "runner", name, "error", err)
			}
		}(name, runner)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreMode, "cache", cfg.CacheMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		wg.Wait()
		return fmt.Errorf("http server: %w", err)
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
	return nil
}
