//go:build integration

package app

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/factory"
	"github.com/kilianp07/relief/test/util"
)

func TestRunExposesPrometheusMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.Addr = "127.0.0.1:18081"
	cfg.Metrics.PrometheusPort = "127.0.0.1:19091"
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	var origin, dest string
	require.Eventually(t, func() bool {
		for _, z := range svc.Coordinator.Zones() {
			switch z.Name {
			case "Bogotá Centro":
				origin = z.ID
			case "La Tebaida":
				dest = z.ID
			}
		}
		return origin != "" && dest != ""
	}, 5*time.Second, 50*time.Millisecond)

	q := url.Values{"origin": {origin}, "destination": {dest}}
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18081/api/optimal-route?" + q.Encode())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	mctx, mcancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer mcancel()
	require.NoError(t, util.WaitForMetric(mctx, "http://127.0.0.1:19091/metrics", `route_queries_total{found="true",metric="distance"}`))

	cancel()
	assert.NoError(t, <-done)
}
