package metrics

import "errors"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRouteQuery forwards to every sink and joins their errors.
func (m *MultiSink) RecordRouteQuery(q RouteQuery) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRouteQuery(q))
	}
	return errors.Join(errs...)
}

// RecordTransfer forwards to every sink and joins their errors.
func (m *MultiSink) RecordTransfer(t Transfer) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordTransfer(t))
	}
	return errors.Join(errs...)
}

// RecordEvacuation forwards to every sink and joins their errors.
func (m *MultiSink) RecordEvacuation(e Evacuation) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordEvacuation(e))
	}
	return errors.Join(errs...)
}

// RecordQueueDepth forwards to the sinks able to record it.
func (m *MultiSink) RecordQueueDepth(depth int) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(QueueDepthRecorder); ok {
			errs = append(errs, r.RecordQueueDepth(depth))
		}
	}
	return errors.Join(errs...)
}

// RecordStockLevels forwards to the sinks able to record it.
func (m *MultiSink) RecordStockLevels(levels []StockLevel) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(StockLevelRecorder); ok {
			errs = append(errs, r.RecordStockLevels(levels))
		}
	}
	return errors.Join(errs...)
}
