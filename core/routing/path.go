package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/relief/core/model"
)

// Metric selects the edge weight minimised by the router.
type Metric int

const (
	Distance Metric = iota
	Time
)

// String returns the metric name.
func (m Metric) String() string {
	switch m {
	case Distance:
		return "distance"
	case Time:
		return "time"
	default:
		return "unknown"
	}
}

// MarshalText encodes the metric by name.
func (m Metric) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText decodes a metric name accepted by ParseMetric.
func (m *Metric) UnmarshalText(b []byte) error {
	v, err := ParseMetric(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ErrUnknownMetric is returned by ParseMetric for an unsupported name.
var ErrUnknownMetric = errors.New("unknown cost metric")

// ParseMetric resolves a case-insensitive metric name.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "distance":
		return Distance, nil
	case "time":
		return Time, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownMetric, s)
	}
}

func (m Metric) weight(r model.Route) float64 {
	if m == Time {
		return r.TimeHours
	}
	return r.DistanceKM
}

// Segment is one traversed route. Reversed is set when a bidirectional router
// walked the route from its destination to its origin.
type Segment struct {
	RouteID    string  `json:"route_id"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKM float64 `json:"distance_km"`
	TimeHours  float64 `json:"time_hours"`
	Capacity   float64 `json:"capacity"`
	Reversed   bool    `json:"reversed,omitempty"`
}

// Path is an ordered list of segments with aggregate figures. Capacity is the
// bottleneck, the smallest segment capacity.
type Path struct {
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	Metric          Metric    `json:"metric"`
	Segments        []Segment `json:"segments"`
	TotalDistanceKM float64   `json:"total_distance_km"`
	TotalTimeHours  float64   `json:"total_time_hours"`
	Capacity        float64   `json:"capacity"`
	SegmentCount    int       `json:"segment_count"`
}

// Cost returns the path cost under its metric.
func (p Path) Cost() float64 {
	if p.Metric == Time {
		return p.TotalTimeHours
	}
	return p.TotalDistanceKM
}

func newSegment(r model.Route, reversed bool) Segment {
	s := Segment{
		RouteID:    r.ID,
		From:       r.Origin,
		To:         r.Destination,
		DistanceKM: r.DistanceKM,
		TimeHours:  r.TimeHours,
		Capacity:   r.Capacity,
		Reversed:   reversed,
	}
	if reversed {
		s.From, s.To = s.To, s.From
	}
	return s
}

func buildPath(origin, dest string, m Metric, segs []Segment) Path {
	p := Path{Origin: origin, Destination: dest, Metric: m, Segments: segs, SegmentCount: len(segs)}
	for i, s := range segs {
		p.TotalDistanceKM += s.DistanceKM
		p.TotalTimeHours += s.TimeHours
		if i == 0 || s.Capacity < p.Capacity {
			p.Capacity = s.Capacity
		}
	}
	return p
}
