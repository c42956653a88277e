package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/config"
	coremon "github.com/kilianp07/relief/core/monitoring"
)

func TestEmptyDSNDisablesReporting(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitorCaptures(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{DSN: "https://public@example.com/1", Environment: "test"})
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.CaptureException(errors.New("boom"), map[string]string{"route": "/api/zones"})
		m.CaptureException(nil, nil)
		m.CapturePanic("kaboom", nil)
		m.Flush(10 * time.Millisecond)
	})
}

func TestBadDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "::not a dsn"})
	assert.Error(t, err)
}
