package main

import (
	"log/slog"

	"github.com/urfave/cli/v2"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "insert the default instrument catalog; existing symbols are kept",
		Action: func(c *cli.Context) error {
			app, ctx, done, err := openApp(c)
			if err != nil {
				return cli.Exit(err, exitFailed)
			}
			defer done()

			n, err := app.Instruments.Seed(ctx)
			if err != nil {
				return cli.Exit(err, exitFailed)
			}
			slog.Info("instrument catalog seeded", "inserted", n)
			return nil
		},
	}
}
