package ledger

import (
	"fmt"
	"time"
)

// Config defines ledger locking behaviour.
type Config struct {
	// LockTimeoutMS bounds how long an operation waits for a location lock.
	LockTimeoutMS int `json:"lock_timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.LockTimeoutMS == 0 {
		c.LockTimeoutMS = 500
	}
}

// Validate checks the timeout.
func (c Config) Validate() error {
	if c.LockTimeoutMS < 0 {
		return fmt.Errorf("lock_timeout_ms must not be negative, got %d", c.LockTimeoutMS)
	}
	return nil
}

// LockTimeout returns the configured wait as a duration.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}
