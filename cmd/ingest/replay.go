package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"fintrade/internal/feature/prices/domain/entity"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "load an archived window into the warehouse without calling the API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbol", Required: true},
			&cli.StringFlag{Name: "from", Required: true, Usage: "first date, YYYY-MM-DD"},
			&cli.StringFlag{Name: "to", Required: true, Usage: "last date, YYYY-MM-DD"},
		},
		Action: func(c *cli.Context) error {
			window, err := parseWindow(c.String("from"), c.String("to"))
			if err != nil {
				return cli.Exit(err, exitFailed)
			}

			app, ctx, done, err := openApp(c)
			if err != nil {
				return cli.Exit(err, exitFailed)
			}
			defer done()

			if err := app.BuildPipeline(ctx); err != nil {
				return cli.Exit(err, exitFailed)
			}
			out, err := app.Runner.Replay(ctx, c.String("symbol"), window)
			if err != nil {
				return cli.Exit(err, exitFailed)
			}
			slog.Info("replay finished",
				"symbol", out.Symbol,
				"status", out.Status,
				"inserted", out.Inserted,
				"skipped", out.Skipped,
				"reason", out.Reason,
			)
			if out.Status == entity.StatusFailed {
				return cli.Exit(fmt.Sprintf("replay of %s failed: %s", out.Symbol, out.Reason), exitFailed)
			}
			return nil
		},
	}
}

func parseWindow(from, to string) (entity.Window, error) {
	first, err := entity.ParseDay(from)
	if err != nil {
		return entity.Window{}, fmt.Errorf("invalid --from: %w", err)
	}
	last, err := entity.ParseDay(to)
	if err != nil {
		return entity.Window{}, fmt.Errorf("invalid --to: %w", err)
	}
	if last.Before(first) {
		return entity.Window{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return entity.Between(first, last), nil
}
