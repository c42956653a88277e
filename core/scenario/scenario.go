// Package scenario loads seed data (zones, routes, stock and teams) from YAML
// or JSON files and applies it to the live components.
package scenario

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/relief/core/model"
)

// BuiltinName selects the embedded scenario in Load.
const BuiltinName = "builtin"

//go:embed builtin.yaml
var builtinYAML []byte

// Zone is a zone declaration. Routes and stock refer to it by name.
type Zone struct {
	Name       string   `yaml:"name" json:"name"`
	Population int      `yaml:"population" json:"population"`
	Risk       int      `yaml:"risk" json:"risk"`
	Type       string   `yaml:"type" json:"type"`
	Lat        *float64 `yaml:"lat" json:"lat"`
	Lng        *float64 `yaml:"lng" json:"lng"`
}

// Route links two zones by name. Available defaults to true.
type Route struct {
	From       string  `yaml:"from" json:"from"`
	To         string  `yaml:"to" json:"to"`
	DistanceKM float64 `yaml:"distance_km" json:"distance_km"`
	TimeHours  float64 `yaml:"time_hours" json:"time_hours"`
	Capacity   float64 `yaml:"capacity" json:"capacity"`
	Available  *bool   `yaml:"available" json:"available"`
}

// Stock seeds a ledger entry. A location naming a zone resolves to its id;
// any other location is used as an opaque key.
type Stock struct {
	Location string `yaml:"location" json:"location"`
	Kind     string `yaml:"kind" json:"kind"`
	Quantity int64  `yaml:"quantity" json:"quantity"`
}

// Team seeds the roster.
type Team struct {
	Name        string   `yaml:"name" json:"name"`
	Type        string   `yaml:"type" json:"type"`
	Members     int      `yaml:"members" json:"members"`
	Specialties []string `yaml:"specialties" json:"specialties"`
}

// Scenario is a complete seed.
type Scenario struct {
	Name   string  `yaml:"name" json:"name"`
	Zones  []Zone  `yaml:"zones" json:"zones"`
	Routes []Route `yaml:"routes" json:"routes"`
	Stocks []Stock `yaml:"stocks" json:"stocks"`
	Teams  []Team  `yaml:"teams" json:"teams"`
}

// Load reads a scenario file, picking the decoder from its extension. The
// name "builtin" returns the embedded scenario.
func Load(path string) (*Scenario, error) {
	if path == BuiltinName {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

// Builtin returns the embedded scenario.
func Builtin() (*Scenario, error) {
	return Parse(builtinYAML, "yaml")
}

// Parse decodes and validates a scenario. format is "yaml" or "json".
func Parse(data []byte, format string) (*Scenario, error) {
	var s Scenario
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &s)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks names, references and kinds. Numeric bounds are left to
// the components the scenario is applied to.
func (s *Scenario) Validate() error {
	names := make(map[string]bool, len(s.Zones))
	for _, z := range s.Zones {
		if z.Name == "" {
			return fmt.Errorf("%w: zone without name", model.ErrInvalidZone)
		}
		if names[z.Name] {
			return fmt.Errorf("%w: duplicate zone %q", model.ErrInvalidZone, z.Name)
		}
		if (z.Lat == nil) != (z.Lng == nil) {
			return fmt.Errorf("%w: zone %q needs both lat and lng", model.ErrInvalidZone, z.Name)
		}
		names[z.Name] = true
	}
	for i, r := range s.Routes {
		if !names[r.From] || !names[r.To] {
			return fmt.Errorf("route %d %q -> %q: %w: unknown zone", i, r.From, r.To, model.ErrNotFound)
		}
	}
	for _, st := range s.Stocks {
		if st.Location == "" {
			return fmt.Errorf("%w: stock without location", model.ErrInvalidQuantity)
		}
		if _, err := model.ParseKind(st.Kind); err != nil {
			return err
		}
	}
	for _, t := range s.Teams {
		if _, err := model.ParseTeamType(t.Type); err != nil {
			return fmt.Errorf("%w: %v", model.ErrInvalidTeam, err)
		}
	}
	return nil
}

// Graph receives zones and routes.
type Graph interface {
	AddZone(ctx context.Context, z model.Zone) (string, error)
	AddRoute(ctx context.Context, r model.Route) (string, error)
}

// Ledger receives stock.
type Ledger interface {
	Add(ctx context.Context, key string, kind model.ResourceKind, qty int64) (int64, error)
}

// Roster receives teams.
type Roster interface {
	Create(ctx context.Context, t model.Team) (model.Team, error)
}

// Applied maps zone names to the ids they received.
type Applied struct {
	Zones  map[string]string
	Routes int
	Stocks int
	Teams  int
}

// Apply creates everything in the scenario. roster may be nil, in which case
// teams are skipped. It stops at the first error.
func (s *Scenario) Apply(ctx context.Context, g Graph, l Ledger, roster Roster) (Applied, error) {
	res := Applied{Zones: make(map[string]string, len(s.Zones))}
	for _, z := range s.Zones {
		mz := model.Zone{
			Name:       z.Name,
			Population: z.Population,
			Risk:       z.Risk,
			Type:       model.ZoneType(strings.ToUpper(z.Type)),
		}
		if z.Lat != nil {
			mz.Position = &model.Position{Lat: *z.Lat, Lng: *z.Lng}
		}
		id, err := g.AddZone(ctx, mz)
		if err != nil {
			return res, fmt.Errorf("zone %q: %w", z.Name, err)
		}
		res.Zones[z.Name] = id
	}
	for _, r := range s.Routes {
		available := r.Available == nil || *r.Available
		_, err := g.AddRoute(ctx, model.Route{
			Origin:      res.Zones[r.From],
			Destination: res.Zones[r.To],
			DistanceKM:  r.DistanceKM,
			TimeHours:   r.TimeHours,
			Capacity:    r.Capacity,
			Available:   available,
		})
		if err != nil {
			return res, fmt.Errorf("route %q -> %q: %w", r.From, r.To, err)
		}
		res.Routes++
	}
	for _, st := range s.Stocks {
		kind, _ := model.ParseKind(st.Kind)
		key := st.Location
		if id, ok := res.Zones[key]; ok {
			key = id
		}
		if _, err := l.Add(ctx, key, kind, st.Quantity); err != nil {
			return res, fmt.Errorf("stock %s/%s: %w", st.Location, st.Kind, err)
		}
		res.Stocks++
	}
	if roster == nil {
		return res, nil
	}
	for _, t := range s.Teams {
		_, err := roster.Create(ctx, model.Team{
			Name:        t.Name,
			Type:        model.TeamType(t.Type),
			Members:     t.Members,
			Specialties: t.Specialties,
		})
		if err != nil {
			return res, fmt.Errorf("team %q: %w", t.Name, err)
		}
		res.Teams++
	}
	return res, nil
}
