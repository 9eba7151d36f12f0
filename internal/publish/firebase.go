package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/db"
)

var ErrNoKey = errors.New("message has neither deviceID nor uuid")

// RefSetter writes a value at a database path.
type RefSetter interface {
	Set(ctx context.Context, path string, v interface{}) error
}

type rtdbSetter struct {
	client *db.Client
}

// NewRTDBSetter adapts a Realtime Database client.
func NewRTDBSetter(client *db.Client) RefSetter {
	return rtdbSetter{client: client}
}

func (s rtdbSetter) Set(ctx context.Context, path string, v interface{}) error {
	return s.client.NewRef(path).Set(ctx, v)
}

// Firebase mirrors messages into the Realtime Database so dashboards can
// follow vehicles live. Telemetry overwrites /{topic}/{deviceID}, keeping
// only the latest position per vehicle; other messages land at
// /{topic}/{uuid}.
type Firebase struct {
	refs RefSetter
}

func NewFirebase(refs RefSetter) *Firebase {
	return &Firebase{refs: refs}
}

type messageKeys struct {
	UUID     string `json:"uuid"`
	DeviceID string `json:"deviceID"`
}

func (f *Firebase) Publish(ctx context.Context, topic string, payload []byte) error {
	var keys messageKeys
	if err := json.Unmarshal(payload, &keys); err != nil {
		return fmt.Errorf("decoding message keys: %w", err)
	}
	key := keys.DeviceID
	if key == "" {
		key = keys.UUID
	}
	if key == "" {
		return ErrNoKey
	}

	path := topic + "/" + key
	if err := f.refs.Set(ctx, path, json.RawMessage(payload)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
