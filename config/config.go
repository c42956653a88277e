// Package config loads the service configuration from a YAML or JSON file
// with environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/relief/core/coordinator"
	"github.com/kilianp07/relief/core/factory"
	"github.com/kilianp07/relief/core/journal"
	"github.com/kilianp07/relief/core/ledger"
	"github.com/kilianp07/relief/core/metrics"
	"github.com/kilianp07/relief/core/notify"
	"github.com/kilianp07/relief/core/routing"
	"github.com/kilianp07/relief/core/scheduler"
	"github.com/kilianp07/relief/infra/mqtt"
)

type Config struct {
	HTTP          HTTPConfig           `json:"http"`
	Routing       routing.Config       `json:"routing"`
	Ledger        ledger.Config        `json:"ledger"`
	Scheduler     scheduler.Config     `json:"scheduler"`
	Storage       factory.ModuleConfig `json:"storage"`
	Journal       journal.Config       `json:"journal"`
	Metrics       metrics.Config       `json:"metrics"`
	MQTT          mqtt.Config          `json:"mqtt"`
	Notifications notify.Config        `json:"notifications"`
	Sentry        SentryConfig         `json:"sentry"`
	Logging       LoggingConfig        `json:"logging"`
	Seed          SeedConfig           `json:"seed"`
}

// Load reads path, applies K_SECTION__KEY environment overrides, then
// defaults, and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// K_SECTION__KEY overrides section.key; the callback already yields
	// dotted keys, so the provider splits on ".".
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, for commands
// that run without a file.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Routing.SetDefaults()
	c.Ledger.SetDefaults()
	c.Scheduler.SetDefaults()
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	c.Journal.SetDefaults()
	c.MQTT.SetDefaults()
	c.Notifications.SetDefaults()
	c.Logging.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"http", c.HTTP.Validate},
		{"routing", c.Routing.Validate},
		{"ledger", c.Ledger.Validate},
		{"scheduler", c.Scheduler.Validate},
		{"journal", c.Journal.Validate},
		{"mqtt", c.MQTT.Validate},
		{"notifications", c.Notifications.Validate},
		{"logging", c.Logging.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

// Coordinator returns the settings of the components owned by the
// coordinator.
func (c Config) Coordinator() coordinator.Config {
	return coordinator.Config{
		Routing:       c.Routing,
		Ledger:        c.Ledger,
		Scheduler:     c.Scheduler,
		Notifications: c.Notifications,
	}
}
