// README: tripsim CLI; offline simulation, route inspection and profile listing.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"tripsim/internal/config"
	"tripsim/internal/infra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	infra.SetupLogging(cfg.Log.Level, cfg.Log.Format)

	if err := newApp(cfg).Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func newApp(cfg config.Config) *cli.App {
	return &cli.App{
		Name:        "tripsim",
		Description: "Freight trip telemetry simulator tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profiles-file",
				Usage:   "YAML route profile catalog replacing the built-in one",
				Value:   cfg.Simulation.ProfilesFile,
				EnvVars: []string{"TRIPSIM_PROFILES_FILE"},
			},
		},
		Commands: []*cli.Command{
			simulateCommand(cfg),
			routeCommand(),
			profilesCommand(),
		},
	}
}
