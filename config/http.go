package config

import "fmt"

// HTTPConfig defines the API listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func (c HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}

// SeedConfig names the scenario loaded when the store is empty: a file path,
// "builtin" for the embedded scenario, or empty for none.
type SeedConfig struct {
	Scenario string `json:"scenario"`
}
