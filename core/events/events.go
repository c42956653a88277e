package events

import (
	"time"

	"github.com/kilianp07/relief/core/model"
)

// Event is anything published on the relief bus.
type Event interface {
	Name() string
}

// RouteQueryEvent is published after each router query.
type RouteQueryEvent struct {
	Origin      string
	Destination string
	Metric      string
	Found       bool
	Hops        int
	Duration    time.Duration
}

func (RouteQueryEvent) Name() string { return "route.query" }

// ZoneEvent is published when a zone is created or its attributes change.
// PreviousRisk is -1 for a new zone.
type ZoneEvent struct {
	Zone         model.Zone
	PreviousRisk int
	Reason       string
}

func (ZoneEvent) Name() string { return "zone.changed" }

// StockEvent reports the new level of one ledger cell.
type StockEvent struct {
	Key      string
	Kind     model.ResourceKind
	Quantity int64
}

func (StockEvent) Name() string { return "stock.level" }

// TransferEvent reports the outcome of a transfer. Err is nil on success and
// DestLevel then holds the destination level after the credit.
type TransferEvent struct {
	Transfer  model.Transfer
	DestLevel int64
	Err       error
}

func (TransferEvent) Name() string { return "resource.transfer" }

// EvacuationEvent is published on every request state change. Zone is set
// once the request completed.
type EvacuationEvent struct {
	Request    model.EvacuationRequest
	Zone       *model.Zone
	QueueDepth int
}

func (EvacuationEvent) Name() string { return "evacuation.state" }

// TeamEvent is published when a team is assigned to or released from a zone.
type TeamEvent struct {
	Team     model.Team
	ZoneID   string
	Assigned bool
}

func (TeamEvent) Name() string { return "team.assignment" }
