// README: Route profiles: named waypoint lists plus synthesis and motion tuning.
package profile

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"tripsim/internal/modules/motion"
	"tripsim/internal/modules/route"
)

var (
	ErrUnknownProfile = errors.New("unknown route profile")
	ErrInvalidProfile = errors.New("invalid route profile")
)

type Profile struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	TripTypes   []string           `json:"trip_types,omitempty" yaml:"trip_types"`
	NominalKm   float64            `json:"nominal_km" yaml:"nominal_km"`
	Waypoints   []route.Waypoint   `json:"waypoints" yaml:"waypoints"`
	Synth       route.SynthOptions `json:"synth" yaml:"synth"`
	Motion      motion.Params      `json:"motion" yaml:"motion"`
}

func (p Profile) Origin() string {
	if len(p.Waypoints) == 0 {
		return ""
	}
	return p.Waypoints[0].Label
}

func (p Profile) Destination() string {
	if len(p.Waypoints) == 0 {
		return ""
	}
	return p.Waypoints[len(p.Waypoints)-1].Label
}

func (p Profile) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	case len(p.Waypoints) < 2:
		return fmt.Errorf("%w: %s needs at least two waypoints", ErrInvalidProfile, p.Name)
	case p.NominalKm <= 0:
		return fmt.Errorf("%w: %s nominal_km must be positive", ErrInvalidProfile, p.Name)
	case p.Synth.Scale <= 0:
		return fmt.Errorf("%w: %s synth scale must be positive", ErrInvalidProfile, p.Name)
	case p.Motion.MaxKmh <= 0 || p.Motion.MinKmh < 0 || p.Motion.MinKmh > p.Motion.MaxKmh:
		return fmt.Errorf("%w: %s motion speed bounds", ErrInvalidProfile, p.Name)
	case p.Motion.DepartureKmh <= 0 || p.Motion.AccelFactor <= 0 || p.Motion.ProximityRadius <= 0:
		return fmt.Errorf("%w: %s departure_kmh, accel_factor and proximity_radius must be positive", ErrInvalidProfile, p.Name)
	}
	return nil
}

// withDefaults fills whole tuning blocks left empty in profiles built in code.
// Files get per-key defaults from UnmarshalYAML.
func (p Profile) withDefaults() Profile {
	if p.Synth == (route.SynthOptions{}) {
		p.Synth = route.DefaultSynthOptions()
	}
	if p.Motion == (motion.Params{}) {
		p.Motion = motion.DefaultParams()
	}
	return p
}

// UnmarshalYAML decodes on top of the default tuning so a file only needs the
// keys it overrides.
func (p *Profile) UnmarshalYAML(value *yaml.Node) error {
	type plain Profile
	out := plain{
		Synth:  route.DefaultSynthOptions(),
		Motion: motion.DefaultParams(),
	}
	if err := value.Decode(&out); err != nil {
		return err
	}
	*p = Profile(out)
	return nil
}
