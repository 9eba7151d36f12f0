// README: Bench cases; trip lifecycle over HTTP, optional Redis channel check, start_trip load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc/pool"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	redis *redis.Client

	// set by the start case and reused by the lifecycle cases after it
	tripID string
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func tripRequest() map[string]any {
	return map[string]any{
		"tipoViaje":         "interurbano",
		"idSucursalOrigen":  "101",
		"idSucursalDestino": "202",
		"hr":                "0800",
		"transportista":     "Bench SRL",
		"dominioSemi":       "AA123BB",
		"precintos":         []string{"PR-001"},
	}
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, http.MethodGet, "/health", nil)
			return expect(status, latency, err, http.StatusOK)
		}},
		{Name: "Trip: start (valid)", Run: func(ctx context.Context, r *Runner) Result {
			status, body, latency, err := r.do(ctx, http.MethodPost, "/start_trip", tripRequest())
			res := expect(status, latency, err, http.StatusOK)
			if res.Status != StatusPass {
				return res
			}
			var out struct {
				ID      string `json:"id_viaje"`
				Dominio string `json:"dominio"`
			}
			if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
				return Result{Status: StatusFail, Latency: latency, Note: "no id_viaje in response"}
			}
			r.tripID = out.ID
			res.Note = "dominio=" + out.Dominio
			return res
		}},
		{Name: "Trip: start (missing fields -> 400)", Run: func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, http.MethodPost, "/start_trip", map[string]any{"tipoViaje": "interurbano"})
			return expect(status, latency, err, http.StatusBadRequest)
		}},
		{Name: "Trip: status of unknown trip -> 404", Run: func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, http.MethodGet, "/trip_status/does-not-exist", nil)
			return expect(status, latency, err, http.StatusNotFound)
		}},
		{Name: "Trip: status", Run: r.needTrip(func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, http.MethodGet, "/trip_status/"+r.tripID, nil)
			return expect(status, latency, err, http.StatusOK)
		})},
		{Name: "Trip: telemetry streams", Run: r.needTrip(waitForTelemetry)},
		{Name: "Redis: telemetry on channel", Run: watchRedisChannel},
		{Name: "Trip: evict", Run: r.needTrip(func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, http.MethodDelete, "/trips/"+r.tripID, nil)
			return expect(status, latency, err, http.StatusOK)
		})},
		{Name: "Trip: status after evict -> 404", Run: r.needTrip(func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, http.MethodGet, "/trip_status/"+r.tripID, nil)
			return expect(status, latency, err, http.StatusNotFound)
		})},
		{Name: "Profiles: list", Run: func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, http.MethodGet, "/profiles", nil)
			return expect(status, latency, err, http.StatusOK)
		}},
		{Name: "Perf: start_trip throughput", Run: startTripLoad},
	}
}

func (r *Runner) needTrip(fn func(ctx context.Context, r *Runner) Result) func(ctx context.Context, r *Runner) Result {
	return func(ctx context.Context, r *Runner) Result {
		if r.tripID == "" {
			return Result{Status: StatusSkip, Note: "no trip started"}
		}
		return fn(ctx, r)
	}
}

func (r *Runner) do(ctx context.Context, method, path string, body any) (int, []byte, time.Duration, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, rd)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, time.Since(start), err
}

func expect(status int, latency time.Duration, err error, want int) Result {
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if status != want {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", status, want)}
	}
	return Result{Status: StatusPass, Latency: latency}
}

func waitForTelemetry(ctx context.Context, r *Runner) Result {
	deadline := time.Now().Add(r.cfg.StreamWait)
	for time.Now().Before(deadline) {
		status, body, _, err := r.do(ctx, http.MethodGet, "/telemetry/"+r.tripID, nil)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if status != http.StatusOK {
			return Result{Status: StatusFail, Note: fmt.Sprintf("status=%d", status)}
		}
		var out struct {
			Telemetry []json.RawMessage `json:"telemetry"`
		}
		if err := json.Unmarshal(body, &out); err == nil && len(out.Telemetry) > 0 {
			return Result{Status: StatusPass, Note: fmt.Sprintf("events=%d", len(out.Telemetry))}
		}
		select {
		case <-ctx.Done():
			return Result{Status: StatusFail, Note: ctx.Err().Error()}
		case <-time.After(250 * time.Millisecond):
		}
	}
	return Result{Status: StatusFail, Note: "no telemetry within " + r.cfg.StreamWait.String()}
}

// watchRedisChannel starts a fresh trip and waits for its first telemetry
// message on the Redis channel.
func watchRedisChannel(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: StatusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StreamWait)
	defer cancel()

	sub := r.redis.Subscribe(ctx, r.cfg.ChannelPrefix+r.cfg.TelemetryTopic)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}

	start := time.Now()
	status, body, _, err := r.do(ctx, http.MethodPost, "/start_trip", tripRequest())
	if err != nil || status != http.StatusOK {
		return Result{Status: StatusFail, Note: fmt.Sprintf("start_trip status=%d err=%v", status, err)}
	}
	var started struct {
		Dominio string `json:"dominio"`
	}
	_ = json.Unmarshal(body, &started)

	ch := sub.Channel()
	for {
		select {
		case msg := <-ch:
			var ev struct {
				DeviceID string `json:"deviceID"`
			}
			if json.Unmarshal([]byte(msg.Payload), &ev) == nil && ev.DeviceID == started.Dominio {
				return Result{Status: StatusPass, Latency: time.Since(start)}
			}
		case <-ctx.Done():
			return Result{Status: StatusFail, Note: "no telemetry for " + started.Dominio}
		}
	}
}

func startTripLoad(ctx context.Context, r *Runner) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64

	p := pool.New().WithMaxGoroutines(r.cfg.Concurrency)
	for i := 0; i < r.cfg.Concurrency; i++ {
		p.Go(func() {
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, _, err := r.do(ctx, http.MethodPost, "/start_trip", tripRequest())
				if err != nil || status != http.StatusOK {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		})
	}
	p.Wait()

	if count.Load() == 0 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("no trips started, errors=%d", errCount.Load())}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}
