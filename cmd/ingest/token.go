package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	jwtmw "fintrade/internal/platform/jwt"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "print a signed service token for the HTTP trigger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Value: "orchestrator", Usage: "service name written into sub"},
			&cli.StringFlag{Name: "scope", Value: jwtmw.ScopeTriggerRuns},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime; defaults to jwt.token_ttl"},
		},
		Action: func(c *cli.Context) error {
			cfg, closer, err := setup(c)
			if err != nil {
				return cli.Exit(err, exitFailed)
			}
			defer closer.Close()

			if err := cfg.RequireJWTSecret(); err != nil {
				return cli.Exit(err, exitFailed)
			}
			ttl := cfg.JWT.TokenTTL
			if c.IsSet("ttl") {
				ttl = c.Duration("ttl")
			}
			tok, err := jwtmw.NewGenerator(cfg.JWT.Secret, ttl).GenerateToken(c.String("subject"), c.String("scope"))
			if err != nil {
				return cli.Exit(err, exitFailed)
			}
			fmt.Fprintln(c.App.Writer, tok)
			return nil
		},
	}
}
