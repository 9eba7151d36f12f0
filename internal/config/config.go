// README: Config loader with env defaults for HTTP, publishers, Redis, Firebase and simulation settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPubSub = "pubsub"
	BackendRedis  = "redis"
	BackendLog    = "log"

	// MaxPace bounds the pause between telemetry points.
	MaxPace = 2 * time.Second
)

type PubSubConfig struct {
	ProjectID       string
	TripTopic       string
	TelemetryTopic  string
	CredentialsFile string
}

type PublisherConfig struct {
	Backend         string
	Timeout         time.Duration
	RetryMaxElapsed time.Duration
}

type SimulationConfig struct {
	MaxDrivers   int
	PaceMin      time.Duration
	PaceMax      time.Duration
	Seed         uint64
	ProfilesFile string
}

type Config struct {
	HTTP struct {
		Addr string
	}
	PubSub    PubSubConfig
	Publisher PublisherConfig
	Redis     struct {
		Addr          string
		ChannelPrefix string
	}
	Firebase struct {
		DatabaseURL string
	}
	Simulation SimulationConfig
	Log        struct {
		Level  string
		Format string
	}
}

// Load reads .env files when present, then the environment. Values that fail
// to parse fall back to their defaults.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading env file: %w", err)
	}

	var cfg Config
	cfg.HTTP.Addr = ":" + envOrDefault("PORT", "8080")

	cfg.PubSub.ProjectID = os.Getenv("PROJECT_ID")
	cfg.PubSub.TripTopic = envOrDefault("TOPIC_VIAJE", "viajes")
	cfg.PubSub.TelemetryTopic = envOrDefault("TOPIC_TELEMETRIA", "telemetria")
	cfg.PubSub.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")

	cfg.Publisher.Backend = strings.ToLower(envOrDefault("TRIPSIM_PUBLISHER", BackendPubSub))
	cfg.Publisher.Timeout = envOrDefaultDuration("TRIPSIM_PUBLISH_TIMEOUT", 10*time.Second)
	cfg.Publisher.RetryMaxElapsed = envOrDefaultDuration("TRIPSIM_PUBLISH_RETRY_MAX", 5*time.Second)

	cfg.Redis.Addr = envOrDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.ChannelPrefix = os.Getenv("TRIPSIM_REDIS_PREFIX")
	cfg.Firebase.DatabaseURL = os.Getenv("TRIPSIM_FIREBASE_DATABASE_URL")

	cfg.Simulation.MaxDrivers = envOrDefaultInt("TRIPSIM_MAX_DRIVERS", 256)
	cfg.Simulation.PaceMin = envOrDefaultDuration("TRIPSIM_PACE_MIN", 100*time.Millisecond)
	cfg.Simulation.PaceMax = envOrDefaultDuration("TRIPSIM_PACE_MAX", 500*time.Millisecond)
	cfg.Simulation.Seed = envOrDefaultUint("TRIPSIM_SEED", 0)
	cfg.Simulation.ProfilesFile = os.Getenv("TRIPSIM_PROFILES_FILE")

	cfg.Log.Level = envOrDefault("TRIPSIM_LOG_LEVEL", "info")
	cfg.Log.Format = envOrDefault("TRIPSIM_LOG_FORMAT", "console")
	return cfg, nil
}

// Validate reports every missing or inconsistent value for the chosen backend.
func (c Config) Validate() error {
	var errs []error
	switch c.Publisher.Backend {
	case BackendPubSub:
		if c.PubSub.ProjectID == "" {
			errs = append(errs, errors.New("PROJECT_ID is required for the pubsub publisher"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis publisher"))
		}
	case BackendLog:
	default:
		errs = append(errs, fmt.Errorf("unknown publisher %q", c.Publisher.Backend))
	}
	if c.PubSub.TripTopic == "" || c.PubSub.TelemetryTopic == "" {
		errs = append(errs, errors.New("TOPIC_VIAJE and TOPIC_TELEMETRIA must not be empty"))
	}
	if c.Publisher.Timeout <= 0 {
		errs = append(errs, errors.New("TRIPSIM_PUBLISH_TIMEOUT must be positive"))
	}
	if c.Simulation.PaceMin < 0 || c.Simulation.PaceMax < c.Simulation.PaceMin {
		errs = append(errs, errors.New("TRIPSIM_PACE_MIN must be >= 0 and <= TRIPSIM_PACE_MAX"))
	}
	if c.Simulation.PaceMax > MaxPace {
		errs = append(errs, fmt.Errorf("TRIPSIM_PACE_MAX must not exceed %s", MaxPace))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultUint(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// envOrDefaultDuration accepts Go durations ("250ms") or bare seconds ("10").
func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(time.Second))
	}
	return def
}
