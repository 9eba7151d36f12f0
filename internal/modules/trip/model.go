// README: Trip aggregate, telemetry events and status definitions.
package trip

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"tripsim/internal/modules/motion"
	"tripsim/internal/modules/route"
	"tripsim/internal/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// AllowedTransitions represents the trip status flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusActive: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Text is a request string that also accepts bare JSON numbers, since branch
// ids and hours arrive as either depending on the caller.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// TripRequest is the inbound trip creation contract.
type TripRequest struct {
	TripType          Text   `json:"tipoViaje"`
	OriginBranch      Text   `json:"idSucursalOrigen"`
	DestinationBranch Text   `json:"idSucursalDestino"`
	ScheduledHour     Text   `json:"hr"`
	Carrier           Text   `json:"transportista"`
	SemiDomainCode    Text   `json:"dominioSemi"`
	Seals             []Text `json:"precintos"`
}

// MissingField returns the wire name of the first absent required field.
func (r TripRequest) MissingField() string {
	required := []struct {
		name  string
		value Text
	}{
		{"tipoViaje", r.TripType},
		{"idSucursalOrigen", r.OriginBranch},
		{"idSucursalDestino", r.DestinationBranch},
		{"hr", r.ScheduledHour},
		{"transportista", r.Carrier},
		{"dominioSemi", r.SemiDomainCode},
	}
	for _, f := range required {
		if strings.TrimSpace(string(f.value)) == "" {
			return f.name
		}
	}
	if len(r.Seals) == 0 {
		return "precintos"
	}
	return ""
}

type TelemetryEvent struct {
	ID        uuid.UUID        `json:"id"`
	TripID    types.ID         `json:"trip_id"`
	Timestamp time.Time        `json:"timestamp"`
	Position  route.RoutePoint `json:"position"`
	SpeedKmh  float64          `json:"speed_kmh"`
	Event     motion.EventCode `json:"event_code"`
	Location  string           `json:"location"`
	Weather   motion.Weather   `json:"weather"`
	Traffic   motion.Traffic   `json:"traffic"`
}

type RouteSummary struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
	AvgSpeedKmh   float64 `json:"avg_speed_kmh"`
}

// NewRouteSummary derives duration and average speed from the simulated
// elapsed time and the profile's nominal distance.
func NewRouteSummary(origin, destination string, nominalKm float64, start, end time.Time) RouteSummary {
	hours := end.Sub(start).Hours()
	avg := 0.0
	if hours > 0 {
		avg = nominalKm / hours
	}
	return RouteSummary{
		Origin:        origin,
		Destination:   destination,
		DistanceKm:    nominalKm,
		DurationHours: hours,
		AvgSpeedKmh:   avg,
	}
}

type Trip struct {
	ID         types.ID         `json:"id"`
	DomainCode string           `json:"dominio"`
	Profile    string           `json:"profile"`
	Request    TripRequest      `json:"request"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    *time.Time       `json:"end_time,omitempty"`
	Status     Status           `json:"status"`
	Events     []TelemetryEvent `json:"telemetry_events"`
	Summary    *RouteSummary    `json:"summary,omitempty"`
}

// clone returns a deep copy so callers never share registry memory.
func (t *Trip) clone() Trip {
	cp := *t
	cp.Request.Seals = append([]Text(nil), t.Request.Seals...)
	cp.Events = make([]TelemetryEvent, len(t.Events))
	copy(cp.Events, t.Events)
	if t.EndTime != nil {
		end := *t.EndTime
		cp.EndTime = &end
	}
	if t.Summary != nil {
		s := *t.Summary
		cp.Summary = &s
	}
	return cp
}
