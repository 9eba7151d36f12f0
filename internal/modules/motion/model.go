// README: Motion vocabulary: event codes, environmental conditions and model parameters.
package motion

import "math/rand/v2"

// EventCode is the categorical telemetry code attached to every step. Wire
// values stay inside the 70-90 band downstream consumers expect.
type EventCode int

const (
	EventDeparture      EventCode = 70
	EventArrival        EventCode = 71
	EventUrbanSlowdown  EventCode = 72
	EventUrbanStop      EventCode = 73
	EventUrbanTurnLeft  EventCode = 74
	EventUrbanTurnRight EventCode = 75
	EventSharpTurn      EventCode = 80
	EventModerateTurn   EventCode = 81
	EventAccelerating   EventCode = 84
	EventCruise         EventCode = 85
)

var urbanBand = []EventCode{EventUrbanSlowdown, EventUrbanStop, EventUrbanTurnLeft, EventUrbanTurnRight}

var eventNames = map[EventCode]string{
	EventDeparture:      "departure",
	EventArrival:        "arrival",
	EventUrbanSlowdown:  "urban_slowdown",
	EventUrbanStop:      "urban_stop",
	EventUrbanTurnLeft:  "urban_turn_left",
	EventUrbanTurnRight: "urban_turn_right",
	EventSharpTurn:      "sharp_turn",
	EventModerateTurn:   "moderate_turn",
	EventAccelerating:   "accelerating",
	EventCruise:         "cruise",
}

func (c EventCode) String() string {
	if name, ok := eventNames[c]; ok {
		return name
	}
	return "unknown"
}

func (c EventCode) Valid() bool {
	_, ok := eventNames[c]
	return ok
}

func (c EventCode) IsUrban() bool {
	return c >= EventUrbanSlowdown && c <= EventUrbanTurnRight
}

type Weather string

const (
	WeatherClear  Weather = "clear"
	WeatherRain   Weather = "rain"
	WeatherCloudy Weather = "cloudy"
)

var weathers = []Weather{WeatherClear, WeatherRain, WeatherCloudy}

// Factor is the speed discount applied for the weather.
func (w Weather) Factor() float64 {
	switch w {
	case WeatherRain:
		return 0.8
	case WeatherCloudy:
		return 0.95
	default:
		return 1.0
	}
}

type Traffic string

const (
	TrafficLow    Traffic = "low"
	TrafficMedium Traffic = "medium"
	TrafficHigh   Traffic = "high"
)

var traffics = []Traffic{TrafficLow, TrafficMedium, TrafficHigh}

func (t Traffic) Factor() float64 {
	switch t {
	case TrafficHigh:
		return 0.75
	case TrafficMedium:
		return 0.9
	default:
		return 1.0
	}
}

// Conditions are sampled once per trip.
type Conditions struct {
	Weather Weather `json:"weather"`
	Traffic Traffic `json:"traffic"`
}

func SampleConditions(rng *rand.Rand) Conditions {
	return Conditions{
		Weather: weathers[rng.IntN(len(weathers))],
		Traffic: traffics[rng.IntN(len(traffics))],
	}
}

// Factor is the combined one-time multiplicative discount.
func (c Conditions) Factor() float64 {
	return c.Weather.Factor() * c.Traffic.Factor()
}

// State is carried across steps of a single driver run.
type State struct {
	SpeedKmh  float64
	LastEvent EventCode
	Location  string
}

// Params configures a Model. Distances are Euclidean degrees, speeds km/h and
// turn thresholds are cosines of the heading change.
type Params struct {
	DepartureKmh    float64 `json:"departure_kmh" yaml:"departure_kmh"`
	ArrivalKmh      float64 `json:"arrival_kmh" yaml:"arrival_kmh"`
	MinKmh          float64 `json:"min_kmh" yaml:"min_kmh"`
	MaxKmh          float64 `json:"max_kmh" yaml:"max_kmh"`
	CruiseKmh       float64 `json:"cruise_kmh" yaml:"cruise_kmh"`
	UrbanMinKmh     float64 `json:"urban_min_kmh" yaml:"urban_min_kmh"`
	UrbanMaxKmh     float64 `json:"urban_max_kmh" yaml:"urban_max_kmh"`
	ProximityRadius float64 `json:"proximity_radius" yaml:"proximity_radius"`
	SharpTurnCos    float64 `json:"sharp_turn_cos" yaml:"sharp_turn_cos"`
	ModerateTurnCos float64 `json:"moderate_turn_cos" yaml:"moderate_turn_cos"`
	SharpFactor     float64 `json:"sharp_factor" yaml:"sharp_factor"`
	SharpFloorKmh   float64 `json:"sharp_floor_kmh" yaml:"sharp_floor_kmh"`
	ModerateFactor  float64 `json:"moderate_factor" yaml:"moderate_factor"`
	AccelFactor     float64 `json:"accel_factor" yaml:"accel_factor"`
}

func DefaultParams() Params {
	return Params{
		DepartureKmh:    10,
		ArrivalKmh:      5,
		MinKmh:          5,
		MaxKmh:          90,
		CruiseKmh:       70,
		UrbanMinKmh:     20,
		UrbanMaxKmh:     40,
		ProximityRadius: 0.01,
		SharpTurnCos:    0.5,
		ModerateTurnCos: 0.85,
		SharpFactor:     0.6,
		SharpFloorKmh:   15,
		ModerateFactor:  0.85,
		AccelFactor:     1.08,
	}
}
