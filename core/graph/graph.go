// Package graph holds the zone graph: zones as nodes and routes as directed,
// weighted edges. Zones and routes live in index based arenas; public ids are
// opaque strings mapped to arena slots.
package graph

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/kilianp07/relief/core/model"
)

// Persister receives every committed mutation while the graph lock is held,
// so the persisted order matches the in-memory order. A returned error aborts
// the mutation.
type Persister interface {
	SaveZone(ctx context.Context, z model.Zone) error
	SaveRoute(ctx context.Context, r model.Route) error
	DeleteRoute(ctx context.Context, id string) error
}

// Edge is one outgoing route as seen from its origin zone.
type Edge struct {
	RouteID    string  `json:"route_id"`
	To         string  `json:"to"`
	DistanceKM float64 `json:"distance_km"`
	TimeHours  float64 `json:"time_hours"`
	Capacity   float64 `json:"capacity"`
	Available  bool    `json:"available"`
}

type routeSlot struct {
	route    model.Route
	from, to int
	deleted  bool
}

// Graph is safe for concurrent use. Reads share a lock; each mutation holds
// the write lock for its whole validate, persist, commit sequence.
type Graph struct {
	mu       sync.RWMutex
	zones    []model.Zone
	zoneIdx  map[string]int
	routes   []routeSlot
	routeIdx map[string]int
	out      [][]int
	in       [][]int

	persist Persister
	newID   func() string
}

// Option configures a Graph.
type Option func(*Graph)

// WithPersister installs p as the mutation sink.
func WithPersister(p Persister) Option { return func(g *Graph) { g.persist = p } }

// WithIDGenerator replaces the uuid generator, mostly for tests.
func WithIDGenerator(f func() string) Option { return func(g *Graph) { g.newID = f } }

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		zoneIdx:  make(map[string]int),
		routeIdx: make(map[string]int),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Restore loads zones and routes without calling the persister. Routes whose
// endpoints are unknown, that fail Route.Validate or that repeat an id are
// rejected.
func (g *Graph) Restore(zones []model.Zone, routes []model.Route) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, z := range zones {
		if _, ok := g.zoneIdx[z.ID]; ok || z.ID == "" {
			return fmt.Errorf("%w: duplicate or empty zone id %q", model.ErrInvalidZone, z.ID)
		}
		g.insertZone(z.Clone())
	}
	for _, r := range routes {
		from, okF := g.zoneIdx[r.Origin]
		to, okT := g.zoneIdx[r.Destination]
		if !okF || !okT {
			return fmt.Errorf("route %s: %w: endpoint zone", r.ID, model.ErrNotFound)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("route %s: %w", r.ID, err)
		}
		if _, ok := g.routeIdx[r.ID]; ok || r.ID == "" {
			return fmt.Errorf("%w: duplicate or empty route id %q", model.ErrInvalidEdge, r.ID)
		}
		g.insertRoute(r, from, to)
	}
	return nil
}

func (g *Graph) insertZone(z model.Zone) {
	if z.Teams == nil {
		z.Teams = []string{}
	}
	g.zoneIdx[z.ID] = len(g.zones)
	g.zones = append(g.zones, z)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
}

func (g *Graph) insertRoute(r model.Route, from, to int) {
	i := len(g.routes)
	g.routeIdx[r.ID] = i
	g.routes = append(g.routes, routeSlot{route: r, from: from, to: to})
	g.out[from] = append(g.out[from], i)
	g.in[to] = append(g.in[to], i)
}

func (g *Graph) unlinkRoute(i int) {
	s := g.routes[i]
	g.out[s.from] = slices.DeleteFunc(g.out[s.from], func(x int) bool { return x == i })
	g.in[s.to] = slices.DeleteFunc(g.in[s.to], func(x int) bool { return x == i })
}

func (g *Graph) savedZone(ctx context.Context, z model.Zone) error {
	if g.persist == nil {
		return nil
	}
	if err := g.persist.SaveZone(ctx, z); err != nil {
		return fmt.Errorf("persist zone %s: %w", z.ID, err)
	}
	return nil
}

func (g *Graph) savedRoute(ctx context.Context, r model.Route) error {
	if g.persist == nil {
		return nil
	}
	if err := g.persist.SaveRoute(ctx, r); err != nil {
		return fmt.Errorf("persist route %s: %w", r.ID, err)
	}
	return nil
}

// AddZone registers a zone and returns its id. An empty id is generated;
// a zero initial population defaults to the current population.
func (g *Graph) AddZone(ctx context.Context, z model.Zone) (string, error) {
	z = z.Clone()
	if z.InitialPopulation == 0 {
		z.InitialPopulation = z.Population
	}
	z.Evacuated = false
	if z.Type == "" {
		z.Type = model.ZoneAffected
	}
	if err := z.Validate(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if z.ID == "" {
		z.ID = g.newID()
	}
	if _, ok := g.zoneIdx[z.ID]; ok {
		return "", fmt.Errorf("%w: zone %s already exists", model.ErrInvalidZone, z.ID)
	}
	if err := g.savedZone(ctx, z); err != nil {
		return "", err
	}
	g.insertZone(z)
	return z.ID, nil
}

// UpdateZone changes the editable attributes of a zone.
func (g *Graph) UpdateZone(ctx context.Context, id string, u model.ZoneUpdate) (model.Zone, error) {
	return g.mutateZone(ctx, id, func(z *model.Zone) error {
		if u.Name != nil {
			z.Name = *u.Name
		}
		if u.Type != nil {
			z.Type = *u.Type
		}
		if u.Risk != nil {
			z.Risk = *u.Risk
		}
		if u.Position != nil {
			p := *u.Position
			z.Position = &p
		}
		return z.Validate()
	})
}

// AssignTeam records teamID on the zone. Assigning twice is a no-op.
func (g *Graph) AssignTeam(ctx context.Context, zoneID, teamID string) (model.Zone, error) {
	return g.mutateZone(ctx, zoneID, func(z *model.Zone) error {
		if !slices.Contains(z.Teams, teamID) {
			z.Teams = append(z.Teams, teamID)
		}
		return nil
	})
}

// ReleaseTeam removes teamID from the zone.
func (g *Graph) ReleaseTeam(ctx context.Context, zoneID, teamID string) (model.Zone, error) {
	return g.mutateZone(ctx, zoneID, func(z *model.Zone) error {
		z.Teams = slices.DeleteFunc(z.Teams, func(t string) bool { return t == teamID })
		return nil
	})
}

// Evacuate removes persons from the zone population, floored at zero, and
// flags the zone evacuated once nobody is left.
func (g *Graph) Evacuate(ctx context.Context, zoneID string, persons int) (model.Zone, error) {
	if persons <= 0 {
		return model.Zone{}, fmt.Errorf("%w: persons %d", model.ErrInvalidQuantity, persons)
	}
	return g.mutateZone(ctx, zoneID, func(z *model.Zone) error {
		z.Population = max(0, z.Population-persons)
		if z.Population == 0 {
			z.Evacuated = true
		}
		return nil
	})
}

func (g *Graph) mutateZone(ctx context.Context, id string, fn func(*model.Zone) error) (model.Zone, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.zoneIdx[id]
	if !ok {
		return model.Zone{}, fmt.Errorf("zone %s: %w", id, model.ErrNotFound)
	}
	z := g.zones[i].Clone()
	if err := fn(&z); err != nil {
		return model.Zone{}, err
	}
	if err := g.savedZone(ctx, z); err != nil {
		return model.Zone{}, err
	}
	g.zones[i] = z
	return z.Clone(), nil
}

// Zone returns a copy of the zone.
func (g *Graph) Zone(id string) (model.Zone, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.zoneIdx[id]
	if !ok {
		return model.Zone{}, fmt.Errorf("zone %s: %w", id, model.ErrNotFound)
	}
	return g.zones[i].Clone(), nil
}

// ZoneByName returns the first zone with the given name.
func (g *Graph) ZoneByName(name string) (model.Zone, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, z := range g.zones {
		if z.Name == name {
			return z.Clone(), true
		}
	}
	return model.Zone{}, false
}

// Zones returns copies of all zones in registration order.
func (g *Graph) Zones() []model.Zone {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.Zone, len(g.zones))
	for i, z := range g.zones {
		out[i] = z.Clone()
	}
	return out
}

// AddRoute registers a route between two existing zones and returns its id.
func (g *Graph) AddRoute(ctx context.Context, r model.Route) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	from, to, err := g.endpoints(r)
	if err != nil {
		return "", err
	}
	if r.ID == "" {
		r.ID = g.newID()
	}
	if _, ok := g.routeIdx[r.ID]; ok {
		return "", fmt.Errorf("%w: route %s already exists", model.ErrInvalidEdge, r.ID)
	}
	if err := g.savedRoute(ctx, r); err != nil {
		return "", err
	}
	g.insertRoute(r, from, to)
	return r.ID, nil
}

func (g *Graph) endpoints(r model.Route) (int, int, error) {
	from, ok := g.zoneIdx[r.Origin]
	if !ok {
		return 0, 0, fmt.Errorf("origin zone %s: %w", r.Origin, model.ErrNotFound)
	}
	to, ok := g.zoneIdx[r.Destination]
	if !ok {
		return 0, 0, fmt.Errorf("destination zone %s: %w", r.Destination, model.ErrNotFound)
	}
	return from, to, nil
}

// UpdateRoute applies u to the route. Changing an endpoint relinks the edge.
func (g *Graph) UpdateRoute(ctx context.Context, id string, u model.RouteUpdate) (model.Route, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, err := g.routeSlot(id)
	if err != nil {
		return model.Route{}, err
	}
	r := u.Apply(g.routes[i].route)
	if err := r.Validate(); err != nil {
		return model.Route{}, err
	}
	from, to, err := g.endpoints(r)
	if err != nil {
		return model.Route{}, err
	}
	if err := g.savedRoute(ctx, r); err != nil {
		return model.Route{}, err
	}
	if s := g.routes[i]; s.from != from || s.to != to {
		g.unlinkRoute(i)
		g.out[from] = append(g.out[from], i)
		g.in[to] = append(g.in[to], i)
	}
	g.routes[i] = routeSlot{route: r, from: from, to: to}
	return r, nil
}

// SetAvailability opens or closes a route for routing.
func (g *Graph) SetAvailability(ctx context.Context, id string, available bool) (model.Route, error) {
	return g.UpdateRoute(ctx, id, model.RouteUpdate{Available: &available})
}

// DeleteRoute removes a route. Its arena slot is tombstoned.
func (g *Graph) DeleteRoute(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, err := g.routeSlot(id)
	if err != nil {
		return err
	}
	if g.persist != nil {
		if err := g.persist.DeleteRoute(ctx, id); err != nil {
			return fmt.Errorf("persist route delete %s: %w", id, err)
		}
	}
	g.unlinkRoute(i)
	g.routes[i].deleted = true
	delete(g.routeIdx, id)
	return nil
}

func (g *Graph) routeSlot(id string) (int, error) {
	i, ok := g.routeIdx[id]
	if !ok || g.routes[i].deleted {
		return 0, fmt.Errorf("route %s: %w", id, model.ErrNotFound)
	}
	return i, nil
}

// Route returns the route with the given id.
func (g *Graph) Route(id string) (model.Route, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, err := g.routeSlot(id)
	if err != nil {
		return model.Route{}, err
	}
	return g.routes[i].route, nil
}

// Routes returns all live routes in creation order.
func (g *Graph) Routes() []model.Route {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.Route, 0, len(g.routeIdx))
	for _, s := range g.routes {
		if !s.deleted {
			out = append(out, s.route)
		}
	}
	return out
}

// Neighbors returns the outgoing edges of a zone. The sequence iterates over
// the edges present at call time and may be ranged over any number of times.
func (g *Graph) Neighbors(zoneID string) (iter.Seq[Edge], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.zoneIdx[zoneID]
	if !ok {
		return nil, fmt.Errorf("zone %s: %w", zoneID, model.ErrNotFound)
	}
	edges := make([]Edge, 0, len(g.out[i]))
	for _, ri := range g.out[i] {
		r := g.routes[ri].route
		edges = append(edges, Edge{
			RouteID:    r.ID,
			To:         r.Destination,
			DistanceKM: r.DistanceKM,
			TimeHours:  r.TimeHours,
			Capacity:   r.Capacity,
			Available:  r.Available,
		})
	}
	return func(yield func(Edge) bool) {
		for _, e := range edges {
			if !yield(e) {
				return
			}
		}
	}, nil
}
