package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"tripsim/internal/config"
	"tripsim/internal/modules/profile"
	"tripsim/internal/modules/route"
	"tripsim/internal/modules/telemetry"
	"tripsim/internal/modules/trip"
	"tripsim/internal/publish"
	"tripsim/internal/types"
)

func loadCatalog(c *cli.Context) (*profile.Catalog, error) {
	if path := c.String("profiles-file"); path != "" {
		return profile.LoadFile(path)
	}
	return profile.Builtin(), nil
}

func simulateCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "run trips end to end without the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "trip-type", Value: profile.DefaultName, Usage: "tipoViaje used to pick the route profile"},
			&cli.IntFlag{Name: "trips", Value: 1, Usage: "number of concurrent trips"},
			&cli.StringFlag{Name: "publisher", Value: config.BackendLog, Usage: "pubsub, redis or log"},
			&cli.DurationFlag{Name: "pace", Value: 0, Usage: "wall-clock pause between events"},
			&cli.Uint64Flag{Name: "seed", Value: cfg.Simulation.Seed, Usage: "random seed, 0 for a random one"},
		},
		Action: func(c *cli.Context) error {
			catalog, err := loadCatalog(c)
			if err != nil {
				return err
			}

			cfg.Publisher.Backend = c.String("publisher")
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			publisher, closePublisher, err := publish.FromConfig(ctx, cfg)
			if err != nil {
				return err
			}
			defer closePublisher()

			registry := trip.NewRegistry()
			pace := c.Duration("pace")
			factory := telemetry.NewFactory(registry, publisher, telemetry.DriverConfig{
				TelemetryTopic: cfg.PubSub.TelemetryTopic,
				PublishTimeout: cfg.Publisher.Timeout,
				PaceMin:        pace,
				PaceMax:        pace,
			}, c.Uint64("seed"))
			supervisor := telemetry.NewSupervisor(ctx, factory, cfg.Simulation.MaxDrivers)
			svc := trip.NewService(registry, publisher, supervisor, catalog, trip.Options{
				TripTopic:      cfg.PubSub.TripTopic,
				PublishTimeout: cfg.Publisher.Timeout,
			})

			n := c.Int("trips")
			var handles []*telemetry.Handle
			for i := 0; i < n; i++ {
				res, err := svc.CreateTrip(ctx, simulatedRequest(c.String("trip-type"), i))
				if err != nil {
					return err
				}
				if h, ok := supervisor.Handle(res.TripID); ok {
					handles = append(handles, h)
				}
			}
			for _, h := range handles {
				select {
				case <-h.Done():
				case <-ctx.Done():
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := supervisor.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("drivers still running at exit")
			}
			return printTrips(c.App.Writer, svc.List(context.Background()))
		},
	}
}

func simulatedRequest(tripType string, i int) trip.TripRequest {
	return trip.TripRequest{
		TripType:          trip.Text(tripType),
		OriginBranch:      "1",
		DestinationBranch: "2",
		ScheduledHour:     trip.Text(time.Now().Format("1504")),
		Carrier:           "tripsim",
		SemiDomainCode:    trip.Text(fmt.Sprintf("SIM%03d", i)),
		Seals:             []trip.Text{trip.Text(uuid.NewString()[:8])},
	}
}

func printTrips(w io.Writer, trips []trip.Trip) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRIP\tDOMINIO\tPROFILE\tSTATUS\tEVENTS\tHOURS\tAVG KM/H")
	for _, t := range trips {
		hours, avg := "-", "-"
		if t.Summary != nil {
			hours = strconv.FormatFloat(t.Summary.DurationHours, 'f', 2, 64)
			avg = strconv.FormatFloat(t.Summary.AvgSpeedKmh, 'f', 1, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", t.ID, t.DomainCode, t.Profile, t.Status, len(t.Events), hours, avg)
	}
	return tw.Flush()
}

func routeCommand() *cli.Command {
	return &cli.Command{
		Name:  "route",
		Usage: "print the synthesized polyline for a profile",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Value: profile.DefaultName},
			&cli.Uint64Flag{Name: "seed", Value: 1},
			&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv or json"},
		},
		Action: func(c *cli.Context) error {
			catalog, err := loadCatalog(c)
			if err != nil {
				return err
			}
			p, err := catalog.Get(c.String("profile"))
			if err != nil {
				return err
			}
			points := route.Synthesize(p.Waypoints, p.Synth, types.NewRand(c.Uint64("seed")))
			return writeRoute(c.App.Writer, c.String("format"), points, p.Waypoints)
		},
	}
}

func writeRoute(w io.Writer, format string, points []route.RoutePoint, waypoints []route.Waypoint) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"index", "lat", "lng", "nearest_waypoint"})
		for i, pt := range points {
			nearest := ""
			if idx, _ := route.Nearest(pt, waypoints); idx >= 0 {
				nearest = waypoints[idx].Label
			}
			_ = cw.Write([]string{
				strconv.Itoa(i),
				strconv.FormatFloat(pt.Lat, 'f', 6, 64),
				strconv.FormatFloat(pt.Lng, 'f', 6, 64),
				nearest,
			})
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "list route profiles",
		Action: func(c *cli.Context) error {
			catalog, err := loadCatalog(c)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tORIGIN\tDESTINATION\tKM\tPOINTS\tTRIP TYPES")
			for _, p := range catalog.All() {
				name := p.Name
				if name == catalog.Default().Name {
					name += " (default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%d\t%v\n",
					name, p.Origin(), p.Destination(), p.NominalKm, route.PointCount(p.Waypoints, p.Synth), p.TripTypes)
			}
			return tw.Flush()
		},
	}
}
