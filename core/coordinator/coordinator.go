// Package coordinator is the single entry point of the relief core. It owns
// the zone graph, router, ledger, scheduler and team roster, and after every
// successful mutation it appends to the journal and publishes an event for
// the metrics collector and the notification centre.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/relief/core/distribution"
	"github.com/kilianp07/relief/core/events"
	"github.com/kilianp07/relief/core/graph"
	"github.com/kilianp07/relief/core/journal"
	"github.com/kilianp07/relief/core/ledger"
	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/notify"
	"github.com/kilianp07/relief/core/routing"
	"github.com/kilianp07/relief/core/scenario"
	"github.com/kilianp07/relief/core/scheduler"
	"github.com/kilianp07/relief/core/simulation"
	"github.com/kilianp07/relief/core/store"
	"github.com/kilianp07/relief/core/teams"
	"github.com/kilianp07/relief/internal/eventbus"
)

// Config groups the settings of the owned components.
type Config struct {
	Routing       routing.Config   `json:"routing"`
	Ledger        ledger.Config    `json:"ledger"`
	Scheduler     scheduler.Config `json:"scheduler"`
	Notifications notify.Config    `json:"notifications"`
}

// SetDefaults applies the defaults of every component.
func (c *Config) SetDefaults() {
	c.Routing.SetDefaults()
	c.Ledger.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Notifications.SetDefaults()
}

// Validate checks every component config.
func (c Config) Validate() error {
	if err := c.Routing.Validate(); err != nil {
		return fmt.Errorf("routing: %w", err)
	}
	if err := c.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Notifications.Validate(); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}
	return nil
}

// Coordinator is safe for concurrent use; locking lives in the components.
type Coordinator struct {
	graph     *graph.Graph
	router    *routing.Router
	ledger    *ledger.Ledger
	scheduler *scheduler.Scheduler
	roster    *teams.Roster
	sim       *simulation.Simulator
	planner   *distribution.Planner

	store   store.Store
	journal journal.Store
	bus     eventbus.EventBus[events.Event]
	now     func() time.Time
	log     logger.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStore persists every mutation to s.
func WithStore(s store.Store) Option { return func(c *Coordinator) { c.store = s } }

// WithJournal records every mutation in j.
func WithJournal(j journal.Store) Option { return func(c *Coordinator) { c.journal = j } }

// WithBus publishes events on b instead of a private bus.
func WithBus(b eventbus.EventBus[events.Event]) Option { return func(c *Coordinator) { c.bus = b } }

// WithClock overrides the journal timestamp source.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// New wires the core components. cfg must have defaults applied.
func New(cfg Config, log logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{journal: journal.Discard{}, now: time.Now, log: logger.OrNop(log)}
	for _, o := range opts {
		o(c)
	}
	if c.bus == nil {
		c.bus = eventbus.New[events.Event](256)
	}

	var (
		gopts []graph.Option
		lopts []ledger.Option
		sopts []scheduler.Option
		topts []teams.Option
	)
	if c.store != nil {
		gopts = append(gopts, graph.WithPersister(c.store))
		lopts = append(lopts, ledger.WithPersister(c.store))
		sopts = append(sopts, scheduler.WithPersister(c.store))
		topts = append(topts, teams.WithPersister(c.store))
	}
	c.graph = graph.New(gopts...)
	c.router = routing.New(c.graph, cfg.Routing, c.log)
	c.ledger = ledger.New(cfg.Ledger, c.log, lopts...)
	c.scheduler = scheduler.New(cfg.Scheduler, c.graph, c.ledger, c.log, sopts...)
	c.roster = teams.New(c.graph, c.log, topts...)
	c.sim = simulation.New(c.graph, c.router, c.ledger, cfg.Notifications.RiskThreshold, c.log)
	c.planner = distribution.New(c.graph, c.ledger, c.log)
	return c
}

// Bus returns the event bus the coordinator publishes on.
func (c *Coordinator) Bus() eventbus.EventBus[events.Event] { return c.bus }

// Router exposes the router for read-only queries.
func (c *Coordinator) Router() *routing.Router { return c.router }

// Restore replays the persisted state. It reports false when the store held
// nothing, in which case the caller may seed a scenario.
func (c *Coordinator) Restore(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	snap, err := c.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load store: %w", err)
	}
	if snap.Empty() {
		return false, nil
	}
	if err := c.graph.Restore(snap.Zones, snap.Routes); err != nil {
		return false, fmt.Errorf("restore graph: %w", err)
	}
	if err := c.ledger.Restore(snap.Stocks); err != nil {
		return false, fmt.Errorf("restore ledger: %w", err)
	}
	if err := c.scheduler.Restore(snap.Evacuations); err != nil {
		return false, fmt.Errorf("restore scheduler: %w", err)
	}
	if err := c.roster.Restore(snap.Teams); err != nil {
		return false, fmt.Errorf("restore teams: %w", err)
	}
	c.log.Infow("state restored", map[string]any{
		"zones": len(snap.Zones), "routes": len(snap.Routes), "stocks": len(snap.Stocks),
		"evacuations": len(snap.Evacuations), "teams": len(snap.Teams),
	})
	return true, nil
}

// Seed applies a scenario straight to the components. Seeding raises no
// notifications and is journaled as a single record.
func (c *Coordinator) Seed(ctx context.Context, s *scenario.Scenario) (scenario.Applied, error) {
	applied, err := s.Apply(ctx, c.graph, c.ledger, c.roster)
	if err != nil {
		return applied, err
	}
	c.record(ctx, "scenario.seed", s.Name, map[string]any{
		"zones": len(applied.Zones), "routes": applied.Routes, "stocks": applied.Stocks, "teams": applied.Teams,
	})
	return applied, nil
}

// record appends to the journal. Failures are logged, the mutation stands.
func (c *Coordinator) record(ctx context.Context, op, subject string, details map[string]any) {
	rec := journal.Record{Timestamp: c.now().UTC(), Operation: op, Subject: subject, Details: details}
	if err := c.journal.Append(ctx, rec); err != nil {
		c.log.Warnf("journal %s %s: %v", op, subject, err)
	}
}

// Journal queries the operation journal.
func (c *Coordinator) Journal(ctx context.Context, q journal.Query) ([]journal.Record, error) {
	return c.journal.Query(ctx, q)
}

// Close releases the bus, the journal and the store.
func (c *Coordinator) Close() error {
	c.bus.Close()
	var errs []error
	if err := c.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("journal: %w", err))
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	return errors.Join(errs...)
}
