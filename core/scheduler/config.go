package scheduler

import (
	"fmt"
	"time"
)

// Config holds the priority weights and the lock wait bound.
type Config struct {
	// PopulationDivisor converts population into priority points.
	PopulationDivisor int `json:"population_divisor"`
	// PopulationCap bounds the points a large population can add. Unset
	// means 50; an explicit 0 ignores population.
	PopulationCap *int `json:"population_cap"`
	// TeamPenalty is subtracted per team already assigned to the zone.
	// Unset means 20.
	TeamPenalty *int `json:"team_penalty"`
	// StockPenalty is subtracted when the zone holds any positive stock.
	// Unset means 10.
	StockPenalty *int `json:"stock_penalty"`
	// LockTimeoutMS bounds how long an operation waits for the queue. 0 is
	// replaced by 500.
	LockTimeoutMS int `json:"lock_timeout_ms"`
}

func intPtr(v int) *int { return &v }

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// SetDefaults applies the standard weights.
func (c *Config) SetDefaults() {
	if c.PopulationDivisor == 0 {
		c.PopulationDivisor = 50
	}
	if c.PopulationCap == nil {
		c.PopulationCap = intPtr(50)
	}
	if c.TeamPenalty == nil {
		c.TeamPenalty = intPtr(20)
	}
	if c.StockPenalty == nil {
		c.StockPenalty = intPtr(10)
	}
	if c.LockTimeoutMS == 0 {
		c.LockTimeoutMS = 500
	}
}

// Validate checks the weights.
func (c Config) Validate() error {
	if c.PopulationDivisor <= 0 {
		return fmt.Errorf("population_divisor must be positive, got %d", c.PopulationDivisor)
	}
	if deref(c.PopulationCap) < 0 || deref(c.TeamPenalty) < 0 || deref(c.StockPenalty) < 0 || c.LockTimeoutMS < 0 {
		return fmt.Errorf("scheduler weights must not be negative")
	}
	return nil
}

func (c Config) lockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

// Priority computes the frozen priority score of a request for a zone with
// the given risk, population and team count.
func (c Config) Priority(risk, population, teams int, hasStock bool) int {
	p := risk + min(population/c.PopulationDivisor, deref(c.PopulationCap)) - deref(c.TeamPenalty)*teams
	if hasStock {
		p -= deref(c.StockPenalty)
	}
	return max(0, p)
}
