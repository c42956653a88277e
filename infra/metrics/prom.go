package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/relief/core/metrics"
)

// PromSink records relief events in Prometheus metrics.
type PromSink struct {
	queries     *prometheus.CounterVec
	queryTime   *prometheus.HistogramVec
	transfers   *prometheus.CounterVec
	transferred *prometheus.CounterVec
	evacuations *prometheus.CounterVec
	persons     *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	stock       *prometheus.GaugeVec
}

// NewPromSink registers relief metrics on the default Prometheus registerer.
// The scrape endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.queries, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_queries_total",
		Help: "Total number of route queries",
	}, []string{"metric", "found"})); err != nil {
		return nil, err
	}
	if s.queryTime, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "route_query_duration_seconds",
		Help:    "Time spent computing a route",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"metric"})); err != nil {
		return nil, err
	}
	if s.transfers, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_transfers_total",
		Help: "Total number of transfer attempts by outcome",
	}, []string{"kind", "result"})); err != nil {
		return nil, err
	}
	if s.transferred, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_transferred_units_total",
		Help: "Units moved by successful transfers",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.evacuations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evacuation_transitions_total",
		Help: "Evacuation requests entering each state",
	}, []string{"state"})); err != nil {
		return nil, err
	}
	if s.persons, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evacuation_persons_total",
		Help: "Persons covered by requests entering each state",
	}, []string{"state"})); err != nil {
		return nil, err
	}
	if s.queueDepth, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evacuation_queue_depth",
		Help: "Number of pending evacuation requests",
	})); err != nil {
		return nil, err
	}
	if s.stock, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resource_stock_level",
		Help: "Current stock per location and kind",
	}, []string{"location", "kind"})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordRouteQuery counts the query and observes its duration.
func (s *PromSink) RecordRouteQuery(q coremetrics.RouteQuery) error {
	s.queries.WithLabelValues(q.Metric, strconv.FormatBool(q.Found)).Inc()
	s.queryTime.WithLabelValues(q.Metric).Observe(q.Duration.Seconds())
	return nil
}

// RecordTransfer counts the attempt and, on success, the moved units.
func (s *PromSink) RecordTransfer(t coremetrics.Transfer) error {
	s.transfers.WithLabelValues(string(t.Kind), string(t.Result)).Inc()
	if t.Result == coremetrics.TransferOK {
		s.transferred.WithLabelValues(string(t.Kind)).Add(float64(t.Quantity))
	}
	return nil
}

// RecordEvacuation counts the state transition.
func (s *PromSink) RecordEvacuation(e coremetrics.Evacuation) error {
	state := e.State.String()
	s.evacuations.WithLabelValues(state).Inc()
	s.persons.WithLabelValues(state).Add(float64(e.Persons))
	return nil
}

// RecordQueueDepth sets the pending queue gauge.
func (s *PromSink) RecordQueueDepth(depth int) error {
	s.queueDepth.Set(float64(depth))
	return nil
}

// RecordStockLevels sets the stock gauges.
func (s *PromSink) RecordStockLevels(levels []coremetrics.StockLevel) error {
	for _, l := range levels {
		s.stock.WithLabelValues(l.Key, string(l.Kind)).Set(float64(l.Quantity))
	}
	return nil
}
