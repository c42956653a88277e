// Package monitoring defines the error reporting hook used by the service.
package monitoring

import "time"

// Monitor reports errors and panics to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor drops everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

// OrNop returns m, or a NopMonitor when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return NopMonitor{}
	}
	return m
}

// Recorder keeps captured errors in memory. Tests use it to assert reporting.
type Recorder struct {
	Errors []error
	Panics []any
	Tags   []map[string]string
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	r.Errors = append(r.Errors, err)
	r.Tags = append(r.Tags, tags)
}

func (r *Recorder) CapturePanic(v any, tags map[string]string) {
	r.Panics = append(r.Panics, v)
	r.Tags = append(r.Tags, tags)
}

func (r *Recorder) Flush(time.Duration) {}
