package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/routing"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `http:
  addr: ":9000"
routing:
  default_metric: time
  bidirectional: true
ledger:
  lock_timeout_ms: 250
storage:
  type: sqlite
  conf:
    path: relief.db
journal:
  backend: rotating
  path: journal.log
  token: secret
metrics:
  sinks:
    - type: prometheus
  prometheus_port: ":9090"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  topic_prefix: "ops"
notifications:
  risk_threshold: 70
logging:
  level: debug
seed:
  scenario: builtin
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.True(t, cfg.Routing.Bidirectional)
	m, err := routing.ParseMetric(cfg.Routing.DefaultMetric)
	require.NoError(t, err)
	assert.Equal(t, routing.Time, m)
	assert.Equal(t, 250, cfg.Ledger.LockTimeoutMS)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "relief.db", cfg.Storage.Conf["path"])
	assert.Equal(t, "rotating", cfg.Journal.Backend)
	assert.Equal(t, 10, cfg.Journal.MaxSizeMB)
	assert.Equal(t, "secret", cfg.Journal.Token)
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "prometheus", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, ":9090", cfg.Metrics.PrometheusPort)
	assert.Equal(t, "ops", cfg.MQTT.TopicPrefix)
	assert.Equal(t, 70, cfg.Notifications.RiskThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "builtin", cfg.Seed.Scenario)

	cc := cfg.Coordinator()
	assert.Equal(t, 70, cc.Notifications.RiskThreshold)
	assert.NoError(t, cc.Validate())
}

func TestLoadDefaultsFromJSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", `{}`))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "jsonl", cfg.Journal.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "relief", cfg.MQTT.TopicPrefix)
	assert.Positive(t, cfg.Ledger.LockTimeoutMS)
	assert.Equal(t, "relief", cfg.Sentry.ServerName)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("K_HTTP__ADDR", ":7777")
	t.Setenv("K_LOGGING__LEVEL", "warn")
	t.Setenv("K_ROUTING__DEFAULT_METRIC", "time")
	cfg, err := Load(writeFile(t, "config.yaml", "http:\n  addr: \":9000\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "time", cfg.Routing.DefaultMetric)
}

func TestSchedulerZeroPenalty(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", "scheduler:\n  stock_penalty: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Scheduler.StockPenalty)
	assert.Equal(t, 0, *cfg.Scheduler.StockPenalty)
	require.NotNil(t, cfg.Scheduler.TeamPenalty)
	assert.Equal(t, 20, *cfg.Scheduler.TeamPenalty)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.yaml", "logging:\n  level: loud\n"))
	assert.ErrorContains(t, err, "logging")

	_, err = Load(writeFile(t, "config.yaml", "journal:\n  backend: kafka\n"))
	assert.ErrorContains(t, err, "journal")

	_, err = Load(writeFile(t, "config.yaml", "mqtt:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "mqtt")

	_, err = Load(writeFile(t, "config.yaml", "routing:\n  default_metric: fuel\n"))
	assert.ErrorContains(t, err, "routing")

	_, err = Load(writeFile(t, "config.yaml", "sentry:\n  traces_sample_rate: 2\n"))
	assert.ErrorContains(t, err, "sentry")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
