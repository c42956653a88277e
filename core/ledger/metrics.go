package ledger

import "github.com/prometheus/client_golang/prometheus"

var (
	lockWait     *prometheus.HistogramVec
	lockTimeouts *prometheus.CounterVec
)

func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec) {
	wait := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_lock_wait_seconds",
			Help:    "Time spent acquiring ledger location locks",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)
	timeouts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_lock_timeouts_total",
			Help: "Number of ledger operations rejected because a lock wait expired",
		},
		[]string{"operation"},
	)
	return wait, timeouts
}

func init() {
	lockWait, lockTimeouts = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers ledger metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(lockWait, lockTimeouts)
}

// ResetMetrics reinitializes the collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	lockWait, lockTimeouts = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
