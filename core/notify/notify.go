// Package notify turns relief events into operator notifications, keeps a
// bounded history of them and forwards each one to field devices.
package notify

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/relief/core/events"
	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/model"
	coremqtt "github.com/kilianp07/relief/core/mqtt"
	"github.com/kilianp07/relief/internal/eventbus"
)

// Config holds the notification thresholds.
type Config struct {
	// RiskThreshold raises CRITICAL_RISK when a zone reaches it.
	RiskThreshold int `json:"risk_threshold"`
	// LowStockThreshold raises LOW_RESOURCES when a transfer leaves the
	// destination below it.
	LowStockThreshold int64 `json:"low_stock_threshold"`
	// HistorySize bounds the number of notifications kept.
	HistorySize int `json:"history_size"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.RiskThreshold == 0 {
		c.RiskThreshold = 80
	}
	if c.LowStockThreshold == 0 {
		c.LowStockThreshold = 200
	}
	if c.HistorySize == 0 {
		c.HistorySize = 500
	}
}

// Validate checks the thresholds.
func (c Config) Validate() error {
	if c.RiskThreshold < 0 || c.RiskThreshold > model.MaxRisk {
		return fmt.Errorf("risk_threshold must be within 0-%d, got %d", model.MaxRisk, c.RiskThreshold)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("low_stock_threshold must not be negative")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history_size must be positive")
	}
	return nil
}

// Center stores notifications, newest last.
type Center struct {
	mu    sync.RWMutex
	items []model.Notification

	cfg   Config
	pub   coremqtt.Publisher
	log   logger.Logger
	now   func() time.Time
	newID func() string
}

// Option configures a Center.
type Option func(*Center)

// WithPublisher forwards every notification to p.
func WithPublisher(p coremqtt.Publisher) Option { return func(c *Center) { c.pub = p } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(c *Center) { c.now = now } }

// New creates a Center. cfg must have defaults applied.
func New(cfg Config, log logger.Logger, opts ...Option) *Center {
	c := &Center{cfg: cfg, log: logger.OrNop(log), now: time.Now, newID: uuid.NewString}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run consumes bus until ctx is done or the bus is closed. The returned
// channel is closed when the consumer exits.
func (c *Center) Run(ctx context.Context, bus eventbus.EventBus[events.Event]) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				c.Handle(ctx, ev)
			}
		}
	}()
	return done
}

// Handle raises the notifications ev calls for.
func (c *Center) Handle(ctx context.Context, ev events.Event) {
	switch e := ev.(type) {
	case events.ZoneEvent:
		z := e.Zone
		if z.Risk >= c.cfg.RiskThreshold && e.PreviousRisk < c.cfg.RiskThreshold {
			c.Notify(ctx, model.NotifyCriticalRisk, z.ID,
				fmt.Sprintf("Zone %s reached critical risk %d", z.Name, z.Risk))
		}
	case events.TransferEvent:
		t := e.Transfer
		if e.Err == nil && e.DestLevel < c.cfg.LowStockThreshold {
			c.Notify(ctx, model.NotifyLowResources, t.Dest,
				fmt.Sprintf("%s at %s is low: %d units after transfer", t.Kind, t.Dest, e.DestLevel))
		}
	case events.EvacuationEvent:
		r := e.Request
		if r.State != model.EvacuationCompleted {
			return
		}
		c.Notify(ctx, model.NotifyEvacuationCompleted, r.ZoneID,
			fmt.Sprintf("Evacuation of %d persons completed", r.Persons))
		if e.Zone != nil && e.Zone.Evacuated {
			c.Notify(ctx, model.NotifyZoneEvacuated, r.ZoneID,
				fmt.Sprintf("Zone %s fully evacuated", e.Zone.Name))
		}
	case events.TeamEvent:
		if e.Assigned {
			c.Notify(ctx, model.NotifyTeamAssigned, e.ZoneID,
				fmt.Sprintf("Team %s (%s) assigned", e.Team.Name, e.Team.Type))
		}
	}
}

// Notify records a notification and forwards it to the publisher.
func (c *Center) Notify(ctx context.Context, typ model.NotificationType, zoneID, msg string) model.Notification {
	n := model.Notification{
		ID:        c.newID(),
		Type:      typ,
		Message:   msg,
		ZoneID:    zoneID,
		CreatedAt: c.now().UTC(),
	}
	c.mu.Lock()
	c.items = append(c.items, n)
	if over := len(c.items) - c.cfg.HistorySize; over > 0 {
		c.items = slices.Delete(c.items, 0, over)
	}
	c.mu.Unlock()

	c.log.Infow("notification", map[string]any{"type": string(typ), "zone": zoneID, "message": msg})
	if c.pub != nil {
		if err := c.pub.PublishNotification(ctx, n); err != nil {
			c.log.Warnf("publish notification %s: %v", n.ID, err)
		}
	}
	return n
}

// List returns notifications newest first. limit <= 0 means no limit.
func (c *Center) List(unreadOnly bool, limit int) []model.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Notification
	for i := len(c.items) - 1; i >= 0; i-- {
		n := c.items[i]
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// MarkRead flags a notification as read.
func (c *Center) MarkRead(id string) (model.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Read = true
			return c.items[i], nil
		}
	}
	return model.Notification{}, fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
}

// Unread counts unread notifications.
func (c *Center) Unread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		if !it.Read {
			n++
		}
	}
	return n
}
