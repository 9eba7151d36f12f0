package publish

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	pubsub "google.golang.org/api/pubsub/v1"
	"google.golang.org/api/option"
)

var ErrMissingProject = errors.New("pubsub project id is required")

// PubSub publishes to Google Cloud Pub/Sub topics of one project through the
// REST API.
type PubSub struct {
	topics    *pubsub.ProjectsTopicsService
	projectID string
}

// NewPubSub builds the client. Without a credentials file the application
// default credentials are used.
func NewPubSub(ctx context.Context, projectID, credentialsFile string, extra ...option.ClientOption) (*PubSub, error) {
	if projectID == "" {
		return nil, ErrMissingProject
	}
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, extra...)

	svc, err := pubsub.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewService: %w", err)
	}
	return &PubSub{topics: svc.Projects.Topics, projectID: projectID}, nil
}

func (p *PubSub) TopicPath(topic string) string {
	return fmt.Sprintf("projects/%s/topics/%s", p.projectID, topic)
}

func (p *PubSub) Publish(ctx context.Context, topic string, payload []byte) error {
	path := p.TopicPath(topic)
	req := &pubsub.PublishRequest{
		Messages: []*pubsub.PubsubMessage{
			{Data: base64.StdEncoding.EncodeToString(payload)},
		},
	}
	resp, err := p.topics.Publish(path, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("pubsub publish %s: %w", path, err)
	}
	if len(resp.MessageIds) > 0 {
		log.Debug().Str("topic", path).Str("message_id", resp.MessageIds[0]).Msg("pubsub message accepted")
	}
	return nil
}
