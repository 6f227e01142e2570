package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"fintrade/internal/feature/prices/domain/entity"
)

// Exit codes of the run command, read by the orchestrator.
const (
	exitSuccess = 0
	exitFailed  = 1
	exitPartial = 3
)

func exitCode(status entity.Status) int {
	switch status {
	case entity.StatusSuccess:
		return exitSuccess
	case entity.StatusPartial:
		return exitPartial
	default:
		return exitFailed
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the pipeline once for every configured symbol",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "symbol",
				Usage: "ingest only these symbols (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the run outcome as JSON on stdout",
			},
		},
		Action: func(c *cli.Context) error {
			app, ctx, done, err := openApp(c)
			if err != nil {
				return cli.Exit(err, exitFailed)
			}
			defer done()

			if symbols := c.StringSlice("symbol"); len(symbols) > 0 {
				app.Config.Pipeline.Symbols = symbols
			}

			if err := app.Config.RequireAPIKey(); err != nil {
				return cli.Exit(err, exitFailed)
			}
			if err := app.BuildPipeline(ctx); err != nil {
				return cli.Exit(err, exitFailed)
			}

			out, err := app.Runner.Trigger(ctx)
			if err != nil {
				return cli.Exit(err, exitFailed)
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return cli.Exit(err, exitFailed)
				}
			}
			for _, e := range out.Entities {
				if e.Status == entity.StatusFailed {
					slog.Warn("entity failed", "symbol", e.Symbol, "reason", e.Reason, "path", e.Path)
				}
			}

			code := exitCode(out.Status)
			if code == exitSuccess {
				return nil
			}
			return cli.Exit("run "+out.RunID+" finished "+string(out.Status), code)
		},
	}
}
