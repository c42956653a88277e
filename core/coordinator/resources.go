package coordinator

import (
	"context"
	"fmt"

	"github.com/kilianp07/relief/core/distribution"
	"github.com/kilianp07/relief/core/events"
	"github.com/kilianp07/relief/core/model"
)

// AddStock increases the stock of kind at key and returns the new level.
func (c *Coordinator) AddStock(ctx context.Context, key string, kind model.ResourceKind, qty int64) (int64, error) {
	level, err := c.ledger.Add(ctx, key, kind, qty)
	if err != nil {
		return 0, err
	}
	c.record(ctx, "stock.add", key, map[string]any{"kind": string(kind), "quantity": qty, "level": level})
	c.bus.Publish(events.StockEvent{Key: key, Kind: kind, Quantity: level})
	return level, nil
}

// Transfer moves stock between two keys atomically.
func (c *Coordinator) Transfer(ctx context.Context, src, dst string, kind model.ResourceKind, qty int64) (model.Transfer, error) {
	t, err := c.ledger.Transfer(ctx, src, dst, kind, qty)
	if err != nil {
		c.bus.Publish(events.TransferEvent{
			Transfer: model.Transfer{Source: src, Dest: dst, Kind: kind, Quantity: qty},
			Err:      err,
		})
		return model.Transfer{}, err
	}
	c.record(ctx, "stock.transfer", t.ID, map[string]any{
		"source": src, "destination": dst, "kind": string(kind), "quantity": qty,
	})
	c.bus.Publish(events.StockEvent{Key: src, Kind: kind, Quantity: t.SourceLevel})
	c.bus.Publish(events.StockEvent{Key: dst, Kind: kind, Quantity: t.DestLevel})
	c.bus.Publish(events.TransferEvent{Transfer: t, DestLevel: t.DestLevel})
	return t, nil
}

// Balance returns the stock held at key.
func (c *Coordinator) Balance(ctx context.Context, key string) (map[model.ResourceKind]int64, error) {
	return c.ledger.Balance(ctx, key)
}

// Stocks returns every ledger entry.
func (c *Coordinator) Stocks() []model.StockEntry { return c.ledger.Snapshot() }

// Deficit returns what key lacks to supply population persons with perPerson
// units each. An empty kind sums over all kinds.
func (c *Coordinator) Deficit(ctx context.Context, key string, kind model.ResourceKind, population, perPerson int64) (int64, error) {
	if kind == "" {
		return c.ledger.Deficit(ctx, key, population, perPerson)
	}
	return c.ledger.KindDeficit(ctx, key, kind, population, perPerson)
}

// Distribute plans a distribution and, when req.Apply is set, executes it as
// transfers from the source. Execution stops at the first failed transfer and
// reports the transfers already made.
func (c *Coordinator) Distribute(ctx context.Context, req distribution.Request) (distribution.Plan, []model.Transfer, error) {
	plan, err := c.planner.Plan(ctx, req)
	if err != nil {
		return distribution.Plan{}, nil, err
	}
	if !req.Apply {
		return plan, nil, nil
	}
	var done []model.Transfer
	for _, a := range plan.Allocations {
		if a.Quantity <= 0 {
			continue
		}
		t, err := c.Transfer(ctx, plan.Source, a.ZoneID, plan.Kind, a.Quantity)
		if err != nil {
			return plan, done, fmt.Errorf("distribute to %s: %w", a.ZoneID, err)
		}
		done = append(done, t)
	}
	plan.Applied = true
	return plan, done, nil
}
