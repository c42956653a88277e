package config

import "fmt"

// SentryConfig enables error and panic reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
	// ServerName tags every event; defaults to "relief".
	ServerName string `json:"server_name"`
}

// SetDefaults fills the server name.
func (c *SentryConfig) SetDefaults() {
	if c.ServerName == "" {
		c.ServerName = "relief"
	}
}

// Validate bounds the sample rate.
func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be within [0,1], got %v", c.TracesSampleRate)
	}
	return nil
}
