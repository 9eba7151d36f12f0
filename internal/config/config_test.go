package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var managedKeys = []string{
	"PORT", "PROJECT_ID", "TOPIC_VIAJE", "TOPIC_TELEMETRIA", "GOOGLE_APPLICATION_CREDENTIALS",
	"TRIPSIM_PUBLISHER", "TRIPSIM_PUBLISH_TIMEOUT", "TRIPSIM_PUBLISH_RETRY_MAX",
	"REDIS_ADDR", "TRIPSIM_REDIS_PREFIX", "TRIPSIM_FIREBASE_DATABASE_URL",
	"TRIPSIM_MAX_DRIVERS", "TRIPSIM_PACE_MIN", "TRIPSIM_PACE_MAX", "TRIPSIM_SEED",
	"TRIPSIM_PROFILES_FILE", "TRIPSIM_LOG_LEVEL", "TRIPSIM_LOG_FORMAT",
}

// clearEnv unsets every key Load reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedKeys {
		if old, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, old) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
		os.Unsetenv(k)
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr = %s", cfg.HTTP.Addr)
	}
	if cfg.PubSub.TripTopic != "viajes" || cfg.PubSub.TelemetryTopic != "telemetria" {
		t.Errorf("topics = %s/%s", cfg.PubSub.TripTopic, cfg.PubSub.TelemetryTopic)
	}
	if cfg.Publisher.Backend != BackendPubSub || cfg.Publisher.Timeout != 10*time.Second {
		t.Errorf("publisher = %+v", cfg.Publisher)
	}
	if cfg.Simulation.MaxDrivers != 256 || cfg.Simulation.PaceMin != 100*time.Millisecond || cfg.Simulation.PaceMax != 500*time.Millisecond {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("TRIPSIM_PUBLISHER", "Redis")
	t.Setenv("TRIPSIM_PUBLISH_TIMEOUT", "3")
	t.Setenv("TRIPSIM_PACE_MIN", "0s")
	t.Setenv("TRIPSIM_PACE_MAX", "50ms")
	t.Setenv("TRIPSIM_MAX_DRIVERS", "not-a-number")
	t.Setenv("TRIPSIM_SEED", "42")

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.Publisher.Backend != BackendRedis {
		t.Errorf("addr/backend = %s/%s", cfg.HTTP.Addr, cfg.Publisher.Backend)
	}
	if cfg.Publisher.Timeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.Publisher.Timeout)
	}
	if cfg.Simulation.PaceMin != 0 || cfg.Simulation.PaceMax != 50*time.Millisecond {
		t.Errorf("pace = %s..%s", cfg.Simulation.PaceMin, cfg.Simulation.PaceMax)
	}
	if cfg.Simulation.MaxDrivers != 256 || cfg.Simulation.Seed != 42 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("PROJECT_ID=freight-dev\nTRIPSIM_REDIS_PREFIX=sim.\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROJECT_ID", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PubSub.ProjectID != "from-env" {
		t.Errorf("environment should win over the file, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.Redis.ChannelPrefix != "sim." {
		t.Errorf("prefix = %q", cfg.Redis.ChannelPrefix)
	}
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) Config {
		clearEnv(t)
		cfg, err := Load(noEnvFile(t))
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"pubsub needs project", func(c *Config) {}, "PROJECT_ID"},
		{"pubsub with project", func(c *Config) { c.PubSub.ProjectID = "p" }, ""},
		{"log backend", func(c *Config) { c.Publisher.Backend = BackendLog }, ""},
		{"unknown backend", func(c *Config) { c.Publisher.Backend = "kafka" }, "unknown publisher"},
		{"inverted pace", func(c *Config) {
			c.Publisher.Backend = BackendLog
			c.Simulation.PaceMin = time.Second
			c.Simulation.PaceMax = time.Millisecond
		}, "TRIPSIM_PACE_MIN"},
		{"pace above cap", func(c *Config) {
			c.Publisher.Backend = BackendLog
			c.Simulation.PaceMax = MaxPace + time.Millisecond
		}, "TRIPSIM_PACE_MAX"},
		{"pace at cap", func(c *Config) {
			c.Publisher.Backend = BackendLog
			c.Simulation.PaceMax = MaxPace
		}, ""},
		{"empty topic", func(c *Config) {
			c.Publisher.Backend = BackendLog
			c.PubSub.TripTopic = ""
		}, "TOPIC_VIAJE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
