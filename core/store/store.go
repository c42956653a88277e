// Package store defines durable persistence for the relief core. Each core
// component writes through a narrow persister while holding its own lock; a
// Store implements all of them and can replay the saved state with Load.
package store

import (
	"context"

	"github.com/kilianp07/relief/core/model"
)

// Snapshot is the persisted state of every component.
type Snapshot struct {
	Zones       []model.Zone              `json:"zones"`
	Routes      []model.Route             `json:"routes"`
	Stocks      []model.StockEntry        `json:"stocks"`
	Evacuations []model.EvacuationRequest `json:"evacuations"`
	Teams       []model.Team              `json:"teams"`
}

// Empty reports whether nothing has been persisted yet.
func (s Snapshot) Empty() bool {
	return len(s.Zones) == 0 && len(s.Routes) == 0 && len(s.Stocks) == 0 &&
		len(s.Evacuations) == 0 && len(s.Teams) == 0
}

// Store persists zones, routes, stock levels, evacuation requests and teams.
type Store interface {
	SaveZone(ctx context.Context, z model.Zone) error
	SaveRoute(ctx context.Context, r model.Route) error
	DeleteRoute(ctx context.Context, id string) error
	// SaveStocks writes the new levels of every entry and the optional
	// transfer record atomically.
	SaveStocks(ctx context.Context, entries []model.StockEntry, t *model.Transfer) error
	SaveEvacuation(ctx context.Context, r model.EvacuationRequest) error
	SaveTeam(ctx context.Context, t model.Team) error
	Load(ctx context.Context) (Snapshot, error)
	Close() error
}
