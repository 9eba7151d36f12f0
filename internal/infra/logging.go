// README: zerolog setup shared by every binary.
package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global logger. format "json" writes JSON lines,
// anything else a human readable console. Unknown levels fall back to info.
func SetupLogging(level, format string) {
	SetupLoggingTo(os.Stdout, level, format)
}

func SetupLoggingTo(w io.Writer, level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
