package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"fintrade/internal/app/di"
	"fintrade/internal/platform/config"
	"fintrade/internal/platform/logging"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "ingest",
		Version: version,
		Usage:   "Fetch daily prices, archive them and load the warehouse",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"FINTRADE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before the environment is read",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			replayCommand(),
			seedCommand(),
			tokenCommand(),
		},
	}
}

// setup loads the configuration and installs the logger.
func setup(c *cli.Context) (config.Config, io.Closer, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return config.Config{}, nil, err
	}
	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, closer, nil
}

// openApp is setup followed by opening the stores. The returned func releases everything.
func openApp(c *cli.Context) (*di.App, context.Context, func(), error) {
	cfg, logCloser, err := setup(c)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)

	app, err := di.New(ctx, cfg)
	if err != nil {
		stop()
		_ = logCloser.Close()
		return nil, nil, nil, err
	}
	return app, ctx, func() {
		app.Close()
		stop()
		_ = logCloser.Close()
	}, nil
}
