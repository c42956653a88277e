package coordinator

import (
	"context"

	"github.com/kilianp07/relief/core/events"
	"github.com/kilianp07/relief/core/model"
)

// CreateTeam registers a team.
func (c *Coordinator) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	created, err := c.roster.Create(ctx, t)
	if err != nil {
		return model.Team{}, err
	}
	c.record(ctx, "team.create", created.ID, map[string]any{"name": created.Name, "type": string(created.Type), "members": created.Members})
	return created, nil
}

// AssignTeam sends an available team to a zone.
func (c *Coordinator) AssignTeam(ctx context.Context, teamID, zoneID string) (model.Team, model.Zone, error) {
	t, z, err := c.roster.Assign(ctx, teamID, zoneID)
	if err != nil {
		return model.Team{}, model.Zone{}, err
	}
	c.record(ctx, "team.assign", teamID, map[string]any{"zone": zoneID})
	c.bus.Publish(events.TeamEvent{Team: t, ZoneID: zoneID, Assigned: true})
	return t, z, nil
}

// ReleaseTeam frees a team from its zone.
func (c *Coordinator) ReleaseTeam(ctx context.Context, teamID string) (model.Team, error) {
	before, err := c.roster.Get(teamID)
	if err != nil {
		return model.Team{}, err
	}
	t, err := c.roster.Release(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}
	if !before.Available {
		c.record(ctx, "team.release", teamID, map[string]any{"zone": before.ZoneID})
		c.bus.Publish(events.TeamEvent{Team: t, ZoneID: before.ZoneID})
	}
	return t, nil
}

// Team returns one team.
func (c *Coordinator) Team(id string) (model.Team, error) { return c.roster.Get(id) }

// Teams lists every team.
func (c *Coordinator) Teams() []model.Team { return c.roster.List() }
