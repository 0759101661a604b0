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
	"github.com/ignite/contact-mailer/internal/mailer"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := app.ConfigureLogger(cfg.Log); err != nil {
		return err
	}

	deps, err := app.Build(context.Background(), cfg, true)
	if err != nil {
		return err
	}
	defer deps.Close()

	renderer, err := mailer.NewRenderer(cfg.Mail.Layout, cfg.Mail.Sender, cfg.Server.PublicBaseURL)
	if err != nil {
		return err
	}

	m := app.NewMetrics()
	handlers := api.NewHandlers(api.Deps{
		Service:         deps.NewService(cfg),
		Renderer:        renderer,
		Mail:            deps.Mail,
		Metrics:         m,
		CallTimeout:     cfg.Store.Timeout(),
		RedirectOnError: cfg.Tracking.RedirectOnError,
	})
	srv := api.NewServer(cfg.Server, api.SetupRoutes(handlers, deps.NewHealthChecker(), m, cfg.Server.AllowedOrigins))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("contact mailer listening",
			"addr", cfg.Server.Addr(),
			"store", cfg.Store.Backend,
			"mail", deps.Mail.Name(),
			"public_base_url", cfg.Server.PublicBaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
