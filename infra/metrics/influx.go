package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/relief/core/metrics"
	"github.com/kilianp07/relief/infra/logger"
)

// InfluxSink writes relief events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRouteQuery writes a route_query point.
func (s *InfluxSink) RecordRouteQuery(q coremetrics.RouteQuery) error {
	p := write.NewPointWithMeasurement("route_query").
		AddTag("metric", q.Metric).
		AddTag("found", strconv.FormatBool(q.Found)).
		AddTag("component", "router").
		AddField("hops", q.Hops).
		AddField("duration_ms", round3(q.Duration.Seconds()*1000)).
		SetTime(q.Time)
	return s.write(p)
}

// RecordTransfer writes a resource_transfer point.
func (s *InfluxSink) RecordTransfer(t coremetrics.Transfer) error {
	p := write.NewPointWithMeasurement("resource_transfer").
		AddTag("kind", string(t.Kind)).
		AddTag("result", string(t.Result)).
		AddTag("source", t.Source).
		AddTag("destination", t.Dest).
		AddTag("component", "ledger").
		AddField("quantity", t.Quantity).
		SetTime(t.Time)
	return s.write(p)
}

// RecordEvacuation writes an evacuation_transition point.
func (s *InfluxSink) RecordEvacuation(e coremetrics.Evacuation) error {
	p := write.NewPointWithMeasurement("evacuation_transition").
		AddTag("state", e.State.String()).
		AddTag("zone_id", e.ZoneID).
		AddTag("evacuation_id", e.ID).
		AddTag("component", "scheduler").
		AddField("persons", e.Persons).
		AddField("priority", e.Priority).
		SetTime(e.Time)
	return s.write(p)
}

// RecordQueueDepth writes the pending queue size.
func (s *InfluxSink) RecordQueueDepth(depth int) error {
	p := write.NewPointWithMeasurement("evacuation_queue").
		AddTag("component", "scheduler").
		AddField("depth", depth).
		SetTime(time.Now())
	return s.write(p)
}

// RecordStockLevels writes one stock_level point per cell.
func (s *InfluxSink) RecordStockLevels(levels []coremetrics.StockLevel) error {
	for _, l := range levels {
		p := write.NewPointWithMeasurement("stock_level").
			AddTag("location", l.Key).
			AddTag("kind", string(l.Kind)).
			AddField("quantity", l.Quantity).
			SetTime(l.Time)
		if err := s.write(p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
