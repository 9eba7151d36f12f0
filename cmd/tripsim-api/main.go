// README: Entry point; loads config, wires registry, publisher, supervisor and the HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tripsim/internal/config"
	httptransport "tripsim/internal/http"
	"tripsim/internal/infra"
	"tripsim/internal/modules/profile"
	"tripsim/internal/modules/telemetry"
	"tripsim/internal/modules/trip"
	"tripsim/internal/publish"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	infra.SetupLogging(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := profile.Builtin()
	if cfg.Simulation.ProfilesFile != "" {
		if catalog, err = profile.LoadFile(cfg.Simulation.ProfilesFile); err != nil {
			log.Fatal().Err(err).Msg("loading profiles")
		}
	}

	publisher, closePublisher, err := publish.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("publisher init")
	}
	defer closePublisher()

	registry := trip.NewRegistry()

	factory := telemetry.NewFactory(registry, publisher, telemetry.DriverConfig{
		TelemetryTopic: cfg.PubSub.TelemetryTopic,
		PublishTimeout: cfg.Publisher.Timeout,
		PaceMin:        cfg.Simulation.PaceMin,
		PaceMax:        cfg.Simulation.PaceMax,
	}, cfg.Simulation.Seed)
	// drivers outlive the signal context until Shutdown cancels them
	supervisor := telemetry.NewSupervisor(context.Background(), factory, cfg.Simulation.MaxDrivers)

	tripSvc := trip.NewService(registry, publisher, supervisor, catalog, trip.Options{
		TripTopic:      cfg.PubSub.TripTopic,
		PublishTimeout: cfg.Publisher.Timeout,
	})

	gin.SetMode(gin.ReleaseMode)
	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.NewRouter(tripSvc))

	if err := server.Run(ctx, shutdownGrace); err != nil {
		log.Error().Err(err).Msg("http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := supervisor.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("drivers did not stop in time")
	}
	log.Info().Msg("bye")
}
