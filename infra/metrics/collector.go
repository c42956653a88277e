package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/relief/core/events"
	coremetrics "github.com/kilianp07/relief/core/metrics"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/infra/logger"
	"github.com/kilianp07/relief/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
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
				if err := record(sink, ev); err != nil {
					log.Warnf("record %s: %v", ev.Name(), err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.Sink, ev events.Event) error {
	now := time.Now()
	switch e := ev.(type) {
	case events.RouteQueryEvent:
		return sink.RecordRouteQuery(coremetrics.RouteQuery{
			Metric: e.Metric, Found: e.Found, Hops: e.Hops, Duration: e.Duration, Time: now,
		})
	case events.TransferEvent:
		t := coremetrics.Transfer{
			Source: e.Transfer.Source, Dest: e.Transfer.Dest, Kind: e.Transfer.Kind,
			Quantity: e.Transfer.Quantity, Result: coremetrics.TransferOK, Time: now,
		}
		switch {
		case errors.Is(e.Err, model.ErrInsufficientStock):
			t.Result = coremetrics.TransferInsufficient
		case e.Err != nil:
			t.Result = coremetrics.TransferRejected
		}
		return sink.RecordTransfer(t)
	case events.StockEvent:
		if r, ok := sink.(coremetrics.StockLevelRecorder); ok {
			return r.RecordStockLevels([]coremetrics.StockLevel{{Key: e.Key, Kind: e.Kind, Quantity: e.Quantity, Time: now}})
		}
	case events.EvacuationEvent:
		err := sink.RecordEvacuation(coremetrics.Evacuation{
			ID: e.Request.ID, ZoneID: e.Request.ZoneID, State: e.Request.State,
			Persons: e.Request.Persons, Priority: e.Request.Priority, Time: now,
		})
		if r, ok := sink.(coremetrics.QueueDepthRecorder); ok {
			err = errors.Join(err, r.RecordQueueDepth(e.QueueDepth))
		}
		return err
	}
	return nil
}
