package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	app := &cli.App{
		Name:  "labcart",
		Usage: "lab test ordering: cart, checkout, results and notifications",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Optional .env file loaded before the environment",
				Value:   ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the reminder poller",
				Action: serveCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Apply Postgres and catalog migrations and exit",
				Action: migrateCommand,
			},
			{
				Name:   "remind",
				Usage:  "Run one reminder sweep and exit",
				Action: remindCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "labcart:", err)
		os.Exit(1)
	}
}
