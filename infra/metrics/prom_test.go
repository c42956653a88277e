package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/relief/core/metrics"
	"github.com/kilianp07/relief/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordRouteQuery(coremetrics.RouteQuery{Metric: "distance", Found: true, Hops: 2, Duration: time.Millisecond}))
	require.NoError(t, sink.RecordTransfer(coremetrics.Transfer{Kind: model.Food, Quantity: 60, Result: coremetrics.TransferOK}))
	require.NoError(t, sink.RecordTransfer(coremetrics.Transfer{Kind: model.Food, Quantity: 150, Result: coremetrics.TransferInsufficient}))
	require.NoError(t, sink.RecordEvacuation(coremetrics.Evacuation{State: model.EvacuationCompleted, Persons: 1000}))
	require.NoError(t, sink.RecordQueueDepth(3))
	require.NoError(t, sink.RecordStockLevels([]coremetrics.StockLevel{{Key: "w", Kind: model.Water, Quantity: 40}}))

	expected := `
# HELP resource_transfers_total Total number of transfer attempts by outcome
# TYPE resource_transfers_total counter
resource_transfers_total{kind="FOOD",result="insufficient_stock"} 1
resource_transfers_total{kind="FOOD",result="ok"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(sink.transfers, strings.NewReader(expected)))
	assert.Equal(t, 60.0, testutil.ToFloat64(sink.transferred.WithLabelValues("FOOD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.queries.WithLabelValues("distance", "true")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(sink.persons.WithLabelValues("COMPLETED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.queueDepth))
	assert.Equal(t, 40.0, testutil.ToFloat64(sink.stock.WithLabelValues("w", "WATER")))
}

func TestPromSinkReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	assert.Same(t, a.transfers, b.transfers)
}
