package publish

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// RetryOptions bound the exponential backoff around a publisher.
type RetryOptions struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  5 * time.Second,
	}
}

type retrying struct {
	next Publisher
	opts RetryOptions
}

// WithRetry retries failed publishes until one succeeds, MaxElapsedTime runs
// out or ctx ends. A zero MaxElapsedTime disables retrying.
func WithRetry(next Publisher, opts RetryOptions) Publisher {
	if opts.MaxElapsedTime <= 0 {
		return next
	}
	return &retrying{next: next, opts: opts}
}

func (r *retrying) Publish(ctx context.Context, topic string, payload []byte) error {
	b := backoff.NewExponentialBackOff()
	if r.opts.InitialInterval > 0 {
		b.InitialInterval = r.opts.InitialInterval
	}
	if r.opts.MaxInterval > 0 {
		b.MaxInterval = r.opts.MaxInterval
	}
	b.MaxElapsedTime = r.opts.MaxElapsedTime

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := r.next.Publish(ctx, topic, payload)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		log.Debug().Err(err).Str("topic", topic).Int("attempt", attempt).Msg("publish failed, retrying")
		return err
	}, backoff.WithContext(b, ctx))
}
