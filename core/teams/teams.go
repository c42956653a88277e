// Package teams keeps the roster of response teams and their zone assignments.
package teams

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/model"
)

// Zones is the part of the zone graph the roster writes to.
type Zones interface {
	AssignTeam(ctx context.Context, zoneID, teamID string) (model.Zone, error)
	ReleaseTeam(ctx context.Context, zoneID, teamID string) (model.Zone, error)
}

// Persister receives every committed team while the roster lock is held.
type Persister interface {
	SaveTeam(ctx context.Context, t model.Team) error
}

// Roster is safe for concurrent use.
type Roster struct {
	mu    sync.Mutex
	teams map[string]model.Team

	zones   Zones
	persist Persister
	newID   func() string
	log     logger.Logger
}

// Option configures a Roster.
type Option func(*Roster)

// WithPersister installs p as the team sink.
func WithPersister(p Persister) Option { return func(r *Roster) { r.persist = p } }

// New creates an empty roster backed by zones.
func New(zones Zones, log logger.Logger, opts ...Option) *Roster {
	r := &Roster{
		teams: make(map[string]model.Team),
		zones: zones,
		newID: uuid.NewString,
		log:   logger.OrNop(log),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Restore loads saved teams without persisting them.
func (r *Roster) Restore(teams []model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range teams {
		if _, ok := r.teams[t.ID]; ok || t.ID == "" {
			return fmt.Errorf("%w: duplicate or empty team id %q", model.ErrInvalidTeam, t.ID)
		}
		r.teams[t.ID] = clone(t)
	}
	return nil
}

func (r *Roster) save(ctx context.Context, t model.Team) error {
	if r.persist == nil {
		return nil
	}
	if err := r.persist.SaveTeam(ctx, t); err != nil {
		return fmt.Errorf("persist team %s: %w", t.ID, err)
	}
	return nil
}

// Create registers a new available team.
func (r *Roster) Create(ctx context.Context, t model.Team) (model.Team, error) {
	typ, err := model.ParseTeamType(string(t.Type))
	if err == nil {
		t.Type = typ
	}
	if err := t.Validate(); err != nil {
		return model.Team{}, err
	}
	t = clone(t)
	t.Available = true
	t.ZoneID = ""

	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = r.newID()
	}
	if _, ok := r.teams[t.ID]; ok {
		return model.Team{}, fmt.Errorf("%w: team %s already exists", model.ErrInvalidTeam, t.ID)
	}
	if err := r.save(ctx, t); err != nil {
		return model.Team{}, err
	}
	r.teams[t.ID] = t
	r.log.Infow("team created", map[string]any{"team": t.ID, "type": string(t.Type), "members": t.Members})
	return clone(t), nil
}

// Assign sends an available team to a zone.
func (r *Roster) Assign(ctx context.Context, teamID, zoneID string) (model.Team, model.Zone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return model.Team{}, model.Zone{}, fmt.Errorf("team %s: %w", teamID, model.ErrNotFound)
	}
	if !t.Available {
		return model.Team{}, model.Zone{}, fmt.Errorf("team %s assigned to %s: %w", teamID, t.ZoneID, model.ErrTeamUnavailable)
	}
	z, err := r.zones.AssignTeam(ctx, zoneID, teamID)
	if err != nil {
		return model.Team{}, model.Zone{}, err
	}
	t.Available = false
	t.ZoneID = zoneID
	if err := r.save(ctx, t); err != nil {
		if _, rerr := r.zones.ReleaseTeam(ctx, zoneID, teamID); rerr != nil {
			r.log.Errorf("undo assignment of team %s: %v", teamID, rerr)
		}
		return model.Team{}, model.Zone{}, err
	}
	r.teams[teamID] = t
	r.log.Infow("team assigned", map[string]any{"team": teamID, "zone": zoneID})
	return clone(t), z, nil
}

// Release frees a team from its zone. Releasing an available team is a no-op.
func (r *Roster) Release(ctx context.Context, teamID string) (model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return model.Team{}, fmt.Errorf("team %s: %w", teamID, model.ErrNotFound)
	}
	if t.Available {
		return clone(t), nil
	}
	zoneID := t.ZoneID
	if _, err := r.zones.ReleaseTeam(ctx, zoneID, teamID); err != nil {
		return model.Team{}, err
	}
	t.Available = true
	t.ZoneID = ""
	if err := r.save(ctx, t); err != nil {
		if _, aerr := r.zones.AssignTeam(ctx, zoneID, teamID); aerr != nil {
			r.log.Errorf("undo release of team %s: %v", teamID, aerr)
		}
		return model.Team{}, err
	}
	r.teams[teamID] = t
	r.log.Infow("team released", map[string]any{"team": teamID, "zone": zoneID})
	return clone(t), nil
}

// Get returns a copy of a team.
func (r *Roster) Get(id string) (model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return model.Team{}, fmt.Errorf("team %s: %w", id, model.ErrNotFound)
	}
	return clone(t), nil
}

// List returns every team ordered by name then id.
func (r *Roster) List() []model.Team {
	r.mu.Lock()
	out := make([]model.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, clone(t))
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b model.Team) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func clone(t model.Team) model.Team {
	t.Specialties = append([]string(nil), t.Specialties...)
	return t
}
