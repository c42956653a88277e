package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/kilianp07/relief/core/model"
)

type stockKey struct {
	key  string
	kind model.ResourceKind
}

// Memory keeps everything in process. It is the default backend and the one
// used by tests.
type Memory struct {
	mu          sync.Mutex
	zones       map[string]model.Zone
	routes      map[string]model.Route
	stocks      map[stockKey]int64
	transfers   []model.Transfer
	evacuations map[string]model.EvacuationRequest
	teams       map[string]model.Team
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		zones:       map[string]model.Zone{},
		routes:      map[string]model.Route{},
		stocks:      map[stockKey]int64{},
		evacuations: map[string]model.EvacuationRequest{},
		teams:       map[string]model.Team{},
	}
}

func (m *Memory) SaveZone(_ context.Context, z model.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones[z.ID] = z.Clone()
	return nil
}

func (m *Memory) SaveRoute(_ context.Context, r model.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[r.ID] = r
	return nil
}

func (m *Memory) DeleteRoute(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routes, id)
	return nil
}

func (m *Memory) SaveStocks(_ context.Context, entries []model.StockEntry, t *model.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.stocks[stockKey{e.Key, e.Kind}] = e.Quantity
	}
	if t != nil {
		m.transfers = append(m.transfers, *t)
	}
	return nil
}

func (m *Memory) SaveEvacuation(_ context.Context, r model.EvacuationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evacuations[r.ID] = r
	return nil
}

func (m *Memory) SaveTeam(_ context.Context, t model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Specialties = slices.Clone(t.Specialties)
	m.teams[t.ID] = t
	return nil
}

// Transfers returns the recorded transfers in order.
func (m *Memory) Transfers() []model.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.transfers)
}

// Load returns the saved state ordered by id so replays are deterministic.
func (m *Memory) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Snapshot
	for _, z := range m.zones {
		s.Zones = append(s.Zones, z.Clone())
	}
	for _, r := range m.routes {
		s.Routes = append(s.Routes, r)
	}
	for k, q := range m.stocks {
		s.Stocks = append(s.Stocks, model.StockEntry{Key: k.key, Kind: k.kind, Quantity: q})
	}
	for _, e := range m.evacuations {
		s.Evacuations = append(s.Evacuations, e)
	}
	for _, t := range m.teams {
		s.Teams = append(s.Teams, t)
	}
	SortSnapshot(&s)
	return s, nil
}

func (m *Memory) Close() error { return nil }

// SortSnapshot orders every collection by id, stocks by key then kind and
// evacuations by submission sequence.
func SortSnapshot(s *Snapshot) {
	slices.SortFunc(s.Zones, func(a, b model.Zone) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.Routes, func(a, b model.Route) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(s.Stocks, func(a, b model.StockEntry) int {
		return cmp.Or(cmp.Compare(a.Key, b.Key), cmp.Compare(a.Kind, b.Kind))
	})
	slices.SortFunc(s.Evacuations, func(a, b model.EvacuationRequest) int { return cmp.Compare(a.Seq, b.Seq) })
	slices.SortFunc(s.Teams, func(a, b model.Team) int { return cmp.Compare(a.ID, b.ID) })
}
