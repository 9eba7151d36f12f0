// README: Profile catalog; built-in Argentine freight routes with optional YAML override.
package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tripsim/internal/modules/motion"
	"tripsim/internal/modules/route"
)

const DefaultName = "interurbano"

type Catalog struct {
	profiles map[string]Profile
	order    []string
	byType   map[string]string
	fallback string
}

// NewCatalog validates profiles and indexes them by name and trip type.
// fallback must name one of the profiles.
func NewCatalog(fallback string, profiles ...Profile) (*Catalog, error) {
	c := &Catalog{
		profiles: make(map[string]Profile, len(profiles)),
		byType:   make(map[string]string),
		fallback: fallback,
	}
	for _, p := range profiles {
		p = p.withDefaults()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.profiles[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidProfile, p.Name)
		}
		c.profiles[p.Name] = p
		c.order = append(c.order, p.Name)
		for _, t := range p.TripTypes {
			c.byType[normalize(t)] = p.Name
		}
	}
	if _, ok := c.profiles[fallback]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownProfile, fallback)
	}
	return c, nil
}

func (c *Catalog) Get(name string) (Profile, error) {
	p, ok := c.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p, nil
}

func (c *Catalog) Default() Profile {
	return c.profiles[c.fallback]
}

// Resolve maps a trip type to a profile by name or alias, falling back to
// the default profile.
func (c *Catalog) Resolve(tripType string) Profile {
	if p, ok := c.profiles[tripType]; ok {
		return p
	}
	if name, ok := c.byType[normalize(tripType)]; ok {
		return c.profiles[name]
	}
	return c.Default()
}

func (c *Catalog) All() []Profile {
	out := make([]Profile, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.profiles[name])
	}
	return out
}

type catalogFile struct {
	Default  string    `yaml:"default"`
	Profiles []Profile `yaml:"profiles"`
}

// LoadFile reads a YAML catalog. An empty default selects the first profile.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("%w: file declares no profiles", ErrInvalidProfile)
	}
	if f.Default == "" {
		f.Default = f.Profiles[0].Name
	}
	return NewCatalog(f.Default, f.Profiles...)
}

// Builtin returns the catalog shipped with the simulator.
func Builtin() *Catalog {
	local := route.DefaultSynthOptions()
	local.Scale = 1000

	urban := motion.DefaultParams()
	urban.MaxKmh = 60
	urban.CruiseKmh = 45
	urban.ProximityRadius = 0.004

	c, err := NewCatalog(DefaultName,
		Profile{
			Name:        DefaultName,
			Description: "Buenos Aires a Rosario por RN9",
			TripTypes:   []string{"larga distancia", "interurbano", "troncal"},
			NominalKm:   300,
			Waypoints: []route.Waypoint{
				{Lat: -34.6037, Lng: -58.3816, Label: "Buenos Aires"},
				{Lat: -34.1633, Lng: -58.9592, Label: "Campana"},
				{Lat: -34.0981, Lng: -59.0286, Label: "Zárate"},
				{Lat: -33.6790, Lng: -59.6663, Label: "San Pedro"},
				{Lat: -33.3342, Lng: -60.2105, Label: "San Nicolás"},
				{Lat: -32.9442, Lng: -60.6505, Label: "Rosario"},
			},
			Synth:  route.DefaultSynthOptions(),
			Motion: motion.DefaultParams(),
		},
		Profile{
			Name:        "urbano",
			Description: "Reparto dentro de CABA",
			TripTypes:   []string{"ultima milla", "reparto", "local"},
			NominalKm:   14,
			Waypoints: []route.Waypoint{
				{Lat: -34.5915, Lng: -58.3745, Label: "Retiro"},
				{Lat: -34.6118, Lng: -58.3630, Label: "Puerto Madero"},
				{Lat: -34.6277, Lng: -58.3817, Label: "Constitución"},
				{Lat: -34.6365, Lng: -58.4000, Label: "Parque Patricios"},
				{Lat: -34.6450, Lng: -58.3840, Label: "Barracas"},
			},
			Synth:  local,
			Motion: urban,
		},
		Profile{
			Name:        "demo",
			Description: "Recorrido corto de diez puntos",
			TripTypes:   []string{"prueba", "test"},
			NominalKm:   3,
			Waypoints: []route.Waypoint{
				{Lat: 47.4076, Lng: -8.5531, Label: "Base"},
				{Lat: 47.4256, Lng: -8.5261, Label: "Punto final"},
			},
			Synth:  route.SynthOptions{MinPoints: 10, Scale: 1, Noise: 0.00001, Drift: 0.00002},
			Motion: motion.DefaultParams(),
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
