package publish

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"tripsim/internal/config"
	"tripsim/internal/infra"
)

// FromConfig builds the configured primary backend, wraps it with retries and
// adds the Firebase mirror when a database URL is set. close releases the
// clients it opened.
func FromConfig(ctx context.Context, cfg config.Config) (p Publisher, close func(), err error) {
	close = func() {}

	var primary Publisher
	switch cfg.Publisher.Backend {
	case config.BackendPubSub:
		ps, err := NewPubSub(ctx, cfg.PubSub.ProjectID, cfg.PubSub.CredentialsFile)
		if err != nil {
			return nil, close, err
		}
		primary = ps
	case config.BackendRedis:
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, close, err
		}
		close = func() { _ = client.Close() }
		primary = Multi{
			NewRedis(client, cfg.Redis.ChannelPrefix),
			BestEffort{Name: "redis-geo", Next: NewGeoIndex(client, cfg.Redis.ChannelPrefix)},
		}
	case config.BackendLog:
		primary = NewLog(log.Logger)
	default:
		return nil, close, fmt.Errorf("unknown publisher %q", cfg.Publisher.Backend)
	}

	retry := DefaultRetryOptions()
	retry.MaxElapsedTime = cfg.Publisher.RetryMaxElapsed
	p = WithRetry(primary, retry)

	if cfg.Firebase.DatabaseURL != "" {
		client, err := infra.NewFirebaseDatabase(ctx, cfg.PubSub.ProjectID, cfg.Firebase.DatabaseURL, cfg.PubSub.CredentialsFile)
		if err != nil {
			close()
			return nil, func() {}, err
		}
		mirror := BestEffort{Name: "firebase", Next: NewFirebase(NewRTDBSetter(client))}
		p = Multi{p, mirror}
	}

	log.Info().
		Str("backend", cfg.Publisher.Backend).
		Bool("firebase_mirror", cfg.Firebase.DatabaseURL != "").
		Msg("publisher ready")
	return p, close, nil
}
