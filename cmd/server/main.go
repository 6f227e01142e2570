package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"fintrade/internal/app/di"
	"fintrade/internal/app/router"
	instrumenthandler "fintrade/internal/feature/instruments/transport/handler"
	runhandler "fintrade/internal/feature/prices/transport/handler"
	"fintrade/internal/feature/prices/usecase"
	"fintrade/internal/platform/config"
	infradb "fintrade/internal/platform/db"
	"fintrade/internal/platform/http/handler"
	"fintrade/internal/platform/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("FINTRADE_CONFIG"), "path to a YAML config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := di.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.BuildPipeline(ctx); err != nil {
		return err
	}

	checks := map[string]handler.Check{
		"db": func(ctx context.Context) error { return infradb.Ping(ctx, app.DB) },
	}
	if app.Redis != nil {
		checks["redis"] = di.PingRedis(app.Redis)
	}

	r := router.NewRouter(router.Handlers{
		Health:      handler.NewHealth(checks),
		Instruments: instrumenthandler.NewInstrumentHandler(app.Instruments),
		Runs:        runhandler.NewRunHandler(app.Runner, ctx),
	}, cfg.JWT.Secret)

	scheduler, err := startSchedule(ctx, cfg.Pipeline, app.Runner)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if scheduler != nil {
		// wait for a scheduled run to observe the cancelled context and record its outcome
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}
	return srv.Shutdown(shutdownCtx)
}

// startSchedule triggers a run on the configured cron expression.
// It returns nil when no schedule is configured.
func startSchedule(ctx context.Context, cfg config.Pipeline, runner *usecase.Runner) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		return nil, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		out, err := runner.Trigger(ctx)
		switch {
		case errors.Is(err, usecase.ErrRunInProgress):
			slog.Warn("scheduled run skipped, previous run still active")
		case err != nil:
			slog.Error("scheduled run failed", "error", err)
		default:
			slog.Info("scheduled run finished", "run_id", out.RunID, "status", out.Status)
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	slog.Info("pipeline schedule enabled", "schedule", cfg.Schedule, "timezone", loc.String())
	return c, nil
}
