package routing

import "fmt"

// Config defines router behaviour.
type Config struct {
	// DefaultMetric is used when a query does not name one: "distance" or "time".
	DefaultMetric string `json:"default_metric"`
	// Bidirectional lets every route be traversed in reverse as well.
	Bidirectional bool `json:"bidirectional"`
	// MaxAlternatives caps the number of paths returned by Alternatives.
	MaxAlternatives int `json:"max_alternatives"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.DefaultMetric == "" {
		c.DefaultMetric = "distance"
	}
	if c.MaxAlternatives == 0 {
		c.MaxAlternatives = 5
	}
}

// Validate checks the metric name and bounds.
func (c Config) Validate() error {
	if _, err := ParseMetric(c.DefaultMetric); err != nil {
		return err
	}
	if c.MaxAlternatives < 1 {
		return fmt.Errorf("max_alternatives must be positive, got %d", c.MaxAlternatives)
	}
	return nil
}
