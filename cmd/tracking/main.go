// Command tracking serves only the open and click trackers. It needs store
// credentials but no mail credentials.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/contact-mailer/internal/api"
	"github.com/ignite/contact-mailer/internal/app"
	"github.com/ignite/contact-mailer/internal/config"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateStore(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if err := app.ConfigureLogger(cfg.Log); err != nil {
		logger.Error("invalid log config", "error", err)
		os.Exit(1)
	}

	deps, err := app.Build(context.Background(), cfg, false)
	if err != nil {
		logger.Error("failed to wire dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	m := app.NewMetrics()
	handlers := api.NewHandlers(api.Deps{
		Service:         deps.NewService(cfg),
		Metrics:         m,
		CallTimeout:     cfg.Store.Timeout(),
		RedirectOnError: cfg.Tracking.RedirectOnError,
	})
	srv := api.NewServer(cfg.Server, api.SetupTrackingRoutes(handlers, deps.NewHealthChecker(), m))

	go func() {
		logger.Info("tracking service listening", "addr", cfg.Server.Addr(), "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down tracking service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
