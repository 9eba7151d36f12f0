// README: Trip service coordinates creation: validate, publish, register, launch the driver.
package trip

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tripsim/internal/modules/profile"
	"tripsim/internal/types"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrPublish        = errors.New("publish failed")
	ErrDuplicateTrip  = errors.New("duplicate trip")
	ErrNotFound       = errors.New("trip not found")
	ErrOutOfOrder     = errors.New("event timestamp not after previous event")
	ErrTripCompleted  = errors.New("trip already completed")
)

// InvalidRequestError names the missing field.
type InvalidRequestError struct {
	Field string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: missing field %s", e.Field)
}

func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// Publisher is the outbound message capability.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Launcher starts and cancels background drivers.
type Launcher interface {
	Launch(tripID types.ID, domainCode string, p profile.Profile)
	Cancel(tripID types.ID) bool
}

type Options struct {
	TripTopic      string
	PublishTimeout time.Duration
}

type Service struct {
	registry  *Registry
	publisher Publisher
	launcher  Launcher
	catalog   *profile.Catalog
	opts      Options
	now       func() time.Time
}

func NewService(registry *Registry, publisher Publisher, launcher Launcher, catalog *profile.Catalog, opts Options) *Service {
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 10 * time.Second
	}
	return &Service{
		registry:  registry,
		publisher: publisher,
		launcher:  launcher,
		catalog:   catalog,
		opts:      opts,
		now:       time.Now,
	}
}

type CreateResult struct {
	TripID     types.ID
	DomainCode string
	Profile    string
}

// CreateTrip publishes the trip creation message and, only if that succeeds,
// registers the trip and launches its driver. The driver is not awaited.
func (s *Service) CreateTrip(ctx context.Context, req TripRequest) (CreateResult, error) {
	if field := req.MissingField(); field != "" {
		return CreateResult{}, &InvalidRequestError{Field: field}
	}

	id := types.ID(uuid.NewString())
	domainCode := NewDomainCode()
	start := s.now().UTC()

	payload, err := NewTripMessage(id, domainCode, start, req).Encode()
	if err != nil {
		return CreateResult{}, fmt.Errorf("encoding trip message: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, s.opts.TripTopic, payload); err != nil {
		log.Error().Err(err).Str("trip_id", string(id)).Str("topic", s.opts.TripTopic).Msg("trip message not published")
		return CreateResult{}, fmt.Errorf("%w: %w", ErrPublish, err)
	}

	p := s.catalog.Resolve(string(req.TripType))
	if err := s.registry.Create(Trip{
		ID:         id,
		DomainCode: domainCode,
		Profile:    p.Name,
		Request:    req,
		StartTime:  start,
		Status:     StatusActive,
	}); err != nil {
		return CreateResult{}, err
	}

	s.launcher.Launch(id, domainCode, p)

	log.Info().
		Str("trip_id", string(id)).
		Str("domain", domainCode).
		Str("profile", p.Name).
		Msg("trip started")

	return CreateResult{TripID: id, DomainCode: domainCode, Profile: p.Name}, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (Trip, error) {
	return s.registry.Get(id)
}

func (s *Service) Events(ctx context.Context, id types.ID) ([]TelemetryEvent, error) {
	return s.registry.Events(id)
}

func (s *Service) List(ctx context.Context) []Trip {
	return s.registry.List()
}

func (s *Service) Profiles() []profile.Profile {
	return s.catalog.All()
}

// Evict drops a trip from the registry; its driver notices on the next
// append and, if still tracked, is cancelled right away.
func (s *Service) Evict(ctx context.Context, id types.ID) error {
	if !s.registry.Remove(id) {
		return ErrNotFound
	}
	s.launcher.Cancel(id)
	log.Info().Str("trip_id", string(id)).Msg("trip evicted")
	return nil
}

const domainAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewDomainCode returns a 6-character uppercase alphanumeric device id.
// Collisions are not checked.
func NewDomainCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = domainAlphabet[rand.IntN(len(domainAlphabet))]
	}
	return string(b)
}
