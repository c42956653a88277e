package coordinator

import (
	"context"
	"time"

	"github.com/kilianp07/relief/core/model"
)

// Summary is the operational overview served by the reports endpoint.
type Summary struct {
	GeneratedAt time.Time                    `json:"generated_at"`
	Zones       ZoneSummary                  `json:"zones"`
	Population  PopulationSummary            `json:"population"`
	Evacuations map[string]int               `json:"evacuations"`
	Resources   map[model.ResourceKind]int64 `json:"resources"`
	Routes      RouteSummary                 `json:"routes"`
	Teams       TeamSummary                  `json:"teams"`
}

// ZoneSummary counts zones.
type ZoneSummary struct {
	Total     int `json:"total"`
	Evacuated int `json:"evacuated"`
	Critical  int `json:"critical"`
}

// PopulationSummary compares the initial and the current population.
type PopulationSummary struct {
	Initial   int `json:"initial"`
	Current   int `json:"current"`
	Evacuated int `json:"evacuated"`
}

// RouteSummary counts routes.
type RouteSummary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// TeamSummary counts teams.
type TeamSummary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// Summary computes the current overview. Zones at or above criticalRisk are
// counted as critical.
func (c *Coordinator) Summary(ctx context.Context, criticalRisk int) (Summary, error) {
	counts, err := c.scheduler.Counts(ctx)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		GeneratedAt: c.now().UTC(),
		Evacuations: map[string]int{},
		Resources:   c.ledger.Totals(),
	}
	for _, st := range []model.EvacuationState{model.EvacuationPending, model.EvacuationInProgress, model.EvacuationCompleted} {
		s.Evacuations[st.String()] = counts[st]
	}
	for _, z := range c.graph.Zones() {
		s.Zones.Total++
		if z.Evacuated {
			s.Zones.Evacuated++
		}
		if z.Risk >= criticalRisk {
			s.Zones.Critical++
		}
		s.Population.Initial += z.InitialPopulation
		s.Population.Current += z.Population
	}
	s.Population.Evacuated = s.Population.Initial - s.Population.Current
	for _, r := range c.graph.Routes() {
		s.Routes.Total++
		if r.Available {
			s.Routes.Available++
		}
	}
	for _, t := range c.roster.List() {
		s.Teams.Total++
		if t.Available {
			s.Teams.Available++
		}
	}
	return s, nil
}
