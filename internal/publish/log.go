package publish

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Log writes every payload to a zerolog logger. Useful for local runs with
// no broker.
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Publish(_ context.Context, topic string, payload []byte) error {
	e := l.logger.Info().Str("topic", topic)
	if json.Valid(payload) {
		e = e.RawJSON("payload", payload)
	} else {
		e = e.Bytes("payload", payload)
	}
	e.Msg("message published")
	return nil
}
