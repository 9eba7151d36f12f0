// README: Outbound publisher backends and their composition (fan-out, retry).
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Publisher sends one payload to a named topic or channel.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

var ErrNoPublishers = errors.New("no publishers configured")

// Multi fans a payload out to every publisher in order. All of them are
// attempted; failures are joined.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, payload []byte) error {
	if len(m) == 0 {
		return ErrNoPublishers
	}
	var errs []error
	for i, p := range m {
		if err := p.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// BestEffort logs failures of the wrapped publisher instead of returning them.
// Mirrors use it so they never fail the primary path.
type BestEffort struct {
	Name string
	Next Publisher
}

func (b BestEffort) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.Next.Publish(ctx, topic, payload); err != nil {
		log.Warn().Err(err).Str("publisher", b.Name).Str("topic", topic).Msg("mirror publish failed")
	}
	return nil
}
