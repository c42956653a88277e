package model

import "fmt"

// ZoneType classifies what a zone is used for during an operation.
type ZoneType string

const (
	ZoneAffected ZoneType = "AFFECTED"
	ZoneShelter  ZoneType = "SHELTER"
	ZoneAidHub   ZoneType = "AID_CENTER"
)

// MaxRisk is the upper bound of the zone risk scale.
const MaxRisk = 100

// Position is a WGS84 coordinate used for display and distance estimates.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Zone is a node of the zone graph.
type Zone struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Type              ZoneType  `json:"type,omitempty"`
	Population        int       `json:"population"`
	InitialPopulation int       `json:"initial_population"`
	Risk              int       `json:"risk"`
	Evacuated         bool      `json:"evacuated"`
	Position          *Position `json:"position,omitempty"`
	Teams             []string  `json:"teams"`
}

// Validate checks the caller supplied attributes of a zone.
func (z Zone) Validate() error {
	if z.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidZone)
	}
	if z.Population < 0 {
		return fmt.Errorf("%w: population %d", ErrInvalidZone, z.Population)
	}
	if z.InitialPopulation < z.Population {
		return fmt.Errorf("%w: population %d above initial %d", ErrInvalidZone, z.Population, z.InitialPopulation)
	}
	if z.Risk < 0 || z.Risk > MaxRisk {
		return fmt.Errorf("%w: risk %d outside 0-%d", ErrInvalidZone, z.Risk, MaxRisk)
	}
	return nil
}

// Clone returns a deep copy so callers never share the team slice.
func (z Zone) Clone() Zone {
	c := z
	c.Teams = append(make([]string, 0, len(z.Teams)), z.Teams...)
	if z.Position != nil {
		p := *z.Position
		c.Position = &p
	}
	return c
}

// ZoneUpdate carries the mutable zone fields. Nil fields are left unchanged.
// Population is absent on purpose: it only changes through evacuations.
type ZoneUpdate struct {
	Name     *string   `json:"name,omitempty"`
	Type     *ZoneType `json:"type,omitempty"`
	Risk     *int      `json:"risk,omitempty"`
	Position *Position `json:"position,omitempty"`
}
