package metrics

import (
	"time"

	"github.com/kilianp07/relief/core/model"
)

// RouteQuery describes one router query.
type RouteQuery struct {
	Metric   string
	Found    bool
	Hops     int
	Duration time.Duration
	Time     time.Time
}

// TransferResult is the outcome label of a transfer.
type TransferResult string

const (
	TransferOK           TransferResult = "ok"
	TransferInsufficient TransferResult = "insufficient_stock"
	TransferRejected     TransferResult = "rejected"
)

// Transfer describes one transfer attempt.
type Transfer struct {
	Source   string
	Dest     string
	Kind     model.ResourceKind
	Quantity int64
	Result   TransferResult
	Time     time.Time
}

// Evacuation describes a request state transition.
type Evacuation struct {
	ID       string
	ZoneID   string
	State    model.EvacuationState
	Persons  int
	Priority int
	Time     time.Time
}

// Sink records relief events for observability purposes.
type Sink interface {
	RecordRouteQuery(q RouteQuery) error
	RecordTransfer(t Transfer) error
	RecordEvacuation(e Evacuation) error
}

// QueueDepthRecorder records the number of pending evacuations.
type QueueDepthRecorder interface {
	RecordQueueDepth(depth int) error
}

// StockLevel is the level of one ledger cell.
type StockLevel struct {
	Key      string
	Kind     model.ResourceKind
	Quantity int64
	Time     time.Time
}

// StockLevelRecorder records ledger levels.
type StockLevelRecorder interface {
	RecordStockLevels(levels []StockLevel) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRouteQuery(RouteQuery) error { return nil }
func (NopSink) RecordTransfer(Transfer) error     { return nil }
func (NopSink) RecordEvacuation(Evacuation) error { return nil }
func (NopSink) RecordQueueDepth(int) error        { return nil }

// Ensure NopSink implements StockLevelRecorder.
func (NopSink) RecordStockLevels([]StockLevel) error { return nil }
