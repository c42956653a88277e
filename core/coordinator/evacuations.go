package coordinator

import (
	"context"

	"github.com/kilianp07/relief/core/events"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/simulation"
)

func (c *Coordinator) publishEvacuation(ctx context.Context, r model.EvacuationRequest, z *model.Zone) {
	depth, err := c.scheduler.QueueDepth(ctx)
	if err != nil {
		depth = -1
	}
	c.bus.Publish(events.EvacuationEvent{Request: r, Zone: z, QueueDepth: max(depth, 0)})
}

// SubmitEvacuation queues an evacuation request for a zone.
func (c *Coordinator) SubmitEvacuation(ctx context.Context, zoneID string, persons int) (model.EvacuationRequest, error) {
	r, err := c.scheduler.Submit(ctx, zoneID, persons)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	c.record(ctx, "evacuation.submit", r.ID, map[string]any{"zone": zoneID, "persons": persons, "priority": r.Priority})
	c.publishEvacuation(ctx, r, nil)
	return r, nil
}

// NextEvacuation peeks at the most urgent pending request.
func (c *Coordinator) NextEvacuation(ctx context.Context) (model.EvacuationRequest, bool, error) {
	return c.scheduler.NextPending(ctx)
}

// StartEvacuation moves a pending request to IN_PROGRESS.
func (c *Coordinator) StartEvacuation(ctx context.Context, id string) (model.EvacuationRequest, error) {
	before, err := c.scheduler.Get(ctx, id)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	r, err := c.scheduler.Start(ctx, id)
	if err != nil {
		return model.EvacuationRequest{}, err
	}
	if before.State != r.State {
		c.record(ctx, "evacuation.start", id, map[string]any{"zone": r.ZoneID})
		c.publishEvacuation(ctx, r, nil)
	}
	return r, nil
}

// ProcessEvacuation completes a request and removes its persons from the zone.
func (c *Coordinator) ProcessEvacuation(ctx context.Context, id string) (model.EvacuationRequest, model.Zone, error) {
	r, z, err := c.scheduler.Process(ctx, id)
	if err != nil {
		return model.EvacuationRequest{}, model.Zone{}, err
	}
	c.record(ctx, "evacuation.process", id, map[string]any{
		"zone": z.ID, "persons": r.Persons, "population": z.Population, "evacuated": z.Evacuated,
	})
	c.publishEvacuation(ctx, r, &z)
	c.bus.Publish(events.ZoneEvent{Zone: z, PreviousRisk: z.Risk, Reason: "evacuation"})
	return r, z, nil
}

// Evacuation returns one request.
func (c *Coordinator) Evacuation(ctx context.Context, id string) (model.EvacuationRequest, error) {
	return c.scheduler.Get(ctx, id)
}

// Evacuations lists requests in queue order, completed ones last.
func (c *Coordinator) Evacuations(ctx context.Context) ([]model.EvacuationRequest, error) {
	return c.scheduler.List(ctx)
}

// PlanEvacuation estimates an evacuation without committing anything.
func (c *Coordinator) PlanEvacuation(ctx context.Context, in simulation.PlanInput) (simulation.EvacuationPlan, error) {
	return c.sim.Evacuation(ctx, in)
}

// SimulateDisaster runs a disaster simulation. Applied simulations update
// zone risk and are journaled per zone.
func (c *Coordinator) SimulateDisaster(ctx context.Context, in simulation.DisasterInput) (simulation.DisasterResult, error) {
	res, err := c.sim.Disaster(ctx, in)
	if !res.Applied && err == nil {
		return res, nil
	}
	for _, impact := range res.Zones {
		z, zerr := c.graph.Zone(impact.ZoneID)
		if zerr != nil {
			continue
		}
		c.record(ctx, "zone.simulate", z.ID, map[string]any{
			"type": string(res.Type), "intensity": res.Intensity,
			"previous_risk": impact.PreviousRisk, "risk": impact.NewRisk,
		})
		c.bus.Publish(events.ZoneEvent{Zone: z, PreviousRisk: impact.PreviousRisk, Reason: "simulation"})
	}
	return res, err
}
