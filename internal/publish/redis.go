package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis publishes on the channel named after the topic.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis publishes through client. A non-empty prefix is prepended to every
// channel name.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	channel := r.prefix + topic
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// GeoIndex keeps the latest position of every vehicle in a Redis GEO set
// named "{prefix}{topic}:positions", keyed by deviceID. Non-telemetry
// payloads are ignored.
type GeoIndex struct {
	client redis.UniversalClient
	prefix string
}

func NewGeoIndex(client redis.UniversalClient, prefix string) *GeoIndex {
	return &GeoIndex{client: client, prefix: prefix}
}

func (g *GeoIndex) Key(topic string) string {
	return g.prefix + topic + ":positions"
}

type geoMessage struct {
	DeviceID string `json:"deviceID"`
	GPS      struct {
		Lat  string `json:"lat"`
		Long string `json:"long"`
	} `json:"gps"`
}

func (g *GeoIndex) Publish(ctx context.Context, topic string, payload []byte) error {
	var msg geoMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding telemetry: %w", err)
	}
	if msg.DeviceID == "" || msg.GPS.Lat == "" {
		return nil
	}
	lat, err := strconv.ParseFloat(msg.GPS.Lat, 64)
	if err != nil {
		return fmt.Errorf("parsing lat: %w", err)
	}
	lng, err := strconv.ParseFloat(msg.GPS.Long, 64)
	if err != nil {
		return fmt.Errorf("parsing long: %w", err)
	}
	loc := &redis.GeoLocation{Name: msg.DeviceID, Longitude: lng, Latitude: lat}
	if err := g.client.GeoAdd(ctx, g.Key(topic), loc).Err(); err != nil {
		return fmt.Errorf("redis geoadd: %w", err)
	}
	return nil
}

// Nearby lists vehicles within radiusKm of a point, closest first.
func (g *GeoIndex) Nearby(ctx context.Context, topic string, lat, lng, radiusKm float64) ([]redis.GeoLocation, error) {
	return g.client.GeoRadius(ctx, g.Key(topic), lng, lat, &redis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Sort:     "ASC",
	}).Result()
}
