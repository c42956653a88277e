package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/relief/core/events"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/routing"
)

// AddZone creates a zone.
func (c *Coordinator) AddZone(ctx context.Context, z model.Zone) (model.Zone, error) {
	id, err := c.graph.AddZone(ctx, z)
	if err != nil {
		return model.Zone{}, err
	}
	created, err := c.graph.Zone(id)
	if err != nil {
		return model.Zone{}, err
	}
	c.record(ctx, "zone.create", id, map[string]any{"name": created.Name, "population": created.Population, "risk": created.Risk})
	c.bus.Publish(events.ZoneEvent{Zone: created, PreviousRisk: -1, Reason: "create"})
	return created, nil
}

// UpdateZone changes the editable attributes of a zone.
func (c *Coordinator) UpdateZone(ctx context.Context, id string, u model.ZoneUpdate) (model.Zone, error) {
	before, err := c.graph.Zone(id)
	if err != nil {
		return model.Zone{}, err
	}
	z, err := c.graph.UpdateZone(ctx, id, u)
	if err != nil {
		return model.Zone{}, err
	}
	c.record(ctx, "zone.update", id, map[string]any{"name": z.Name, "risk": z.Risk, "previous_risk": before.Risk})
	c.bus.Publish(events.ZoneEvent{Zone: z, PreviousRisk: before.Risk, Reason: "update"})
	return z, nil
}

// DeleteZone is not supported: zones are referenced by routes, requests and
// ledger keys.
func (c *Coordinator) DeleteZone(_ context.Context, id string) error {
	if _, err := c.graph.Zone(id); err != nil {
		return err
	}
	return fmt.Errorf("delete zone %s: %w", id, model.ErrNotImplemented)
}

// Zone returns one zone.
func (c *Coordinator) Zone(id string) (model.Zone, error) { return c.graph.Zone(id) }

// Zones returns every zone.
func (c *Coordinator) Zones() []model.Zone { return c.graph.Zones() }

// AddRoute creates a route.
func (c *Coordinator) AddRoute(ctx context.Context, r model.Route) (model.Route, error) {
	id, err := c.graph.AddRoute(ctx, r)
	if err != nil {
		return model.Route{}, err
	}
	created, err := c.graph.Route(id)
	if err != nil {
		return model.Route{}, err
	}
	c.record(ctx, "route.create", id, routeDetails(created))
	return created, nil
}

// UpdateRoute changes route attributes, endpoints included.
func (c *Coordinator) UpdateRoute(ctx context.Context, id string, u model.RouteUpdate) (model.Route, error) {
	r, err := c.graph.UpdateRoute(ctx, id, u)
	if err != nil {
		return model.Route{}, err
	}
	c.record(ctx, "route.update", id, routeDetails(r))
	return r, nil
}

// SetRouteAvailability opens or closes a route.
func (c *Coordinator) SetRouteAvailability(ctx context.Context, id string, available bool) (model.Route, error) {
	r, err := c.graph.SetAvailability(ctx, id, available)
	if err != nil {
		return model.Route{}, err
	}
	c.record(ctx, "route.availability", id, map[string]any{"available": available})
	return r, nil
}

// DeleteRoute removes a route.
func (c *Coordinator) DeleteRoute(ctx context.Context, id string) error {
	if err := c.graph.DeleteRoute(ctx, id); err != nil {
		return err
	}
	c.record(ctx, "route.delete", id, nil)
	return nil
}

// Route returns one route.
func (c *Coordinator) Route(id string) (model.Route, error) { return c.graph.Route(id) }

// Routes returns every route.
func (c *Coordinator) Routes() []model.Route { return c.graph.Routes() }

func routeDetails(r model.Route) map[string]any {
	return map[string]any{
		"origin": r.Origin, "destination": r.Destination, "distance_km": r.DistanceKM,
		"time_hours": r.TimeHours, "capacity": r.Capacity, "available": r.Available,
	}
}

// metric resolves a metric name, falling back to the router default.
func (c *Coordinator) metric(name string) (routing.Metric, error) {
	if name == "" {
		return c.router.DefaultMetric(), nil
	}
	return routing.ParseMetric(name)
}

// ShortestPath answers an optimal route query. An empty metric uses the
// router default.
func (c *Coordinator) ShortestPath(origin, destination, metric string) (routing.Path, error) {
	m, err := c.metric(metric)
	if err != nil {
		return routing.Path{}, err
	}
	start := time.Now()
	p, err := c.router.ShortestPath(origin, destination, m)
	c.bus.Publish(events.RouteQueryEvent{
		Origin: origin, Destination: destination, Metric: m.String(),
		Found: err == nil, Hops: p.SegmentCount, Duration: time.Since(start),
	})
	return p, err
}

// Alternatives returns up to k loopless paths in cost order.
func (c *Coordinator) Alternatives(origin, destination, metric string, k int) ([]routing.Path, error) {
	m, err := c.metric(metric)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	paths, err := c.router.Alternatives(origin, destination, m, k)
	hops := 0
	if len(paths) > 0 {
		hops = paths[0].SegmentCount
	}
	c.bus.Publish(events.RouteQueryEvent{
		Origin: origin, Destination: destination, Metric: m.String(),
		Found: err == nil && len(paths) > 0, Hops: hops, Duration: time.Since(start),
	})
	return paths, err
}
