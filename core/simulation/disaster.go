// Package simulation estimates the impact of disasters and the cost of
// evacuations without committing anything unless asked to.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/routing"
)

// DisasterType names a kind of disaster.
type DisasterType string

const (
	Earthquake DisasterType = "EARTHQUAKE"
	Hurricane  DisasterType = "HURRICANE"
	Flood      DisasterType = "FLOOD"
	Fire       DisasterType = "FIRE"
	Landslide  DisasterType = "LANDSLIDE"
	Drought    DisasterType = "DROUGHT"
)

var multipliers = map[DisasterType]float64{
	Earthquake: 1.5,
	Hurricane:  1.4,
	Flood:      1.2,
	Fire:       1.3,
	Landslide:  1.25,
	Drought:    0.8,
}

var disasterAliases = map[string]DisasterType{
	"TERREMOTO":     Earthquake,
	"HURACAN":       Hurricane,
	"INUNDACION":    Flood,
	"INCENDIO":      Fire,
	"DESLIZAMIENTO": Landslide,
	"SEQUIA":        Drought,
}

// ErrUnknownDisaster is returned for an unsupported disaster type.
var ErrUnknownDisaster = errors.New("unknown disaster type")

// ParseDisasterType resolves a case-insensitive English or Spanish name.
func ParseDisasterType(s string) (DisasterType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if d, ok := disasterAliases[name]; ok {
		return d, nil
	}
	if _, ok := multipliers[DisasterType(name)]; ok {
		return DisasterType(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDisaster, s)
}

// RiskIncrement returns the risk points a disaster of the given intensity adds.
func RiskIncrement(d DisasterType, intensity int) int {
	return int(float64(intensity/2) * multipliers[d])
}

// Zones is the part of the zone graph the simulator needs.
type Zones interface {
	Zone(id string) (model.Zone, error)
	UpdateZone(ctx context.Context, id string, u model.ZoneUpdate) (model.Zone, error)
}

// Paths finds routes between zones.
type Paths interface {
	ShortestPath(origin, destination string, m routing.Metric) (routing.Path, error)
}

// Stock reads ledger levels.
type Stock interface {
	Quantity(ctx context.Context, key string, kind model.ResourceKind) (int64, error)
}

// Simulator runs what-if computations over the live components.
type Simulator struct {
	zones         Zones
	paths         Paths
	stock         Stock
	riskThreshold int
	log           logger.Logger
}

// New creates a Simulator. Zones at or above riskThreshold are reported critical.
func New(zones Zones, paths Paths, stock Stock, riskThreshold int, log logger.Logger) *Simulator {
	return &Simulator{zones: zones, paths: paths, stock: stock, riskThreshold: riskThreshold, log: logger.OrNop(log)}
}

// DisasterInput describes a disaster to simulate.
type DisasterInput struct {
	Type      string   `json:"type"`
	Intensity int      `json:"intensity"`
	Zones     []string `json:"zones"`
	Apply     bool     `json:"apply"`
}

// ZoneImpact is the effect of a disaster on one zone.
type ZoneImpact struct {
	ZoneID             string `json:"zone_id"`
	Name               string `json:"name"`
	PreviousRisk       int    `json:"previous_risk"`
	NewRisk            int    `json:"new_risk"`
	AffectedPopulation int    `json:"affected_population"`
	Critical           bool   `json:"critical"`
}

// DisasterResult summarises a simulated disaster.
type DisasterResult struct {
	Type          DisasterType `json:"type"`
	Intensity     int          `json:"intensity"`
	RiskIncrement int          `json:"risk_increment"`
	Zones         []ZoneImpact `json:"zones"`
	TotalAffected int          `json:"total_affected"`
	Applied       bool         `json:"applied"`
}

// Disaster computes the impact of in on every listed zone and, when in.Apply
// is set, writes the new risk levels to the graph. Unknown zones fail the
// whole simulation before anything is written.
func (s *Simulator) Disaster(ctx context.Context, in DisasterInput) (DisasterResult, error) {
	typ, err := ParseDisasterType(in.Type)
	if err != nil {
		return DisasterResult{}, err
	}
	if in.Intensity < 1 || in.Intensity > 100 {
		return DisasterResult{}, fmt.Errorf("%w: intensity %d outside 1-100", model.ErrInvalidQuantity, in.Intensity)
	}
	if len(in.Zones) == 0 {
		return DisasterResult{}, fmt.Errorf("%w: no zones given", model.ErrInvalidZone)
	}

	res := DisasterResult{Type: typ, Intensity: in.Intensity, RiskIncrement: RiskIncrement(typ, in.Intensity)}
	zones := make([]model.Zone, 0, len(in.Zones))
	for _, id := range in.Zones {
		z, err := s.zones.Zone(id)
		if err != nil {
			return DisasterResult{}, err
		}
		zones = append(zones, z)
	}

	for _, z := range zones {
		newRisk := min(model.MaxRisk, z.Risk+res.RiskIncrement)
		impact := ZoneImpact{
			ZoneID:             z.ID,
			Name:               z.Name,
			PreviousRisk:       z.Risk,
			NewRisk:            newRisk,
			AffectedPopulation: z.Population * newRisk / 100,
			Critical:           newRisk >= s.riskThreshold,
		}
		if in.Apply {
			if _, err := s.zones.UpdateZone(ctx, z.ID, model.ZoneUpdate{Risk: &newRisk}); err != nil {
				return res, fmt.Errorf("apply to zone %s: %w", z.ID, err)
			}
		}
		res.Zones = append(res.Zones, impact)
		res.TotalAffected += impact.AffectedPopulation
	}
	res.Applied = in.Apply
	s.log.Infow("disaster simulated", map[string]any{
		"type": string(typ), "intensity": in.Intensity, "zones": len(res.Zones),
		"affected": res.TotalAffected, "applied": in.Apply,
	})
	return res, nil
}
