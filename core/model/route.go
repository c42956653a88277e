package model

import "fmt"

// Route is a directed edge between two zones.
type Route struct {
	ID          string  `json:"id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	DistanceKM  float64 `json:"distance_km"`
	TimeHours   float64 `json:"time_hours"`
	Capacity    float64 `json:"capacity"`
	Available   bool    `json:"available"`
}

// Validate checks the numeric attributes and endpoints of the route.
func (r Route) Validate() error {
	if r.Origin == "" || r.Destination == "" {
		return fmt.Errorf("%w: origin and destination are required", ErrInvalidEdge)
	}
	if r.Origin == r.Destination {
		return fmt.Errorf("%w: origin equals destination", ErrInvalidEdge)
	}
	if r.DistanceKM <= 0 || r.TimeHours <= 0 || r.Capacity <= 0 {
		return fmt.Errorf("%w: distance, time and capacity must be positive", ErrInvalidEdge)
	}
	return nil
}

// RouteUpdate carries the editable route fields. Nil fields are left unchanged.
type RouteUpdate struct {
	Origin      *string  `json:"origin,omitempty"`
	Destination *string  `json:"destination,omitempty"`
	DistanceKM  *float64 `json:"distance_km,omitempty"`
	TimeHours   *float64 `json:"time_hours,omitempty"`
	Capacity    *float64 `json:"capacity,omitempty"`
	Available   *bool    `json:"available,omitempty"`
}

// Apply returns r with the non-nil fields of u.
func (u RouteUpdate) Apply(r Route) Route {
	if u.Origin != nil {
		r.Origin = *u.Origin
	}
	if u.Destination != nil {
		r.Destination = *u.Destination
	}
	if u.DistanceKM != nil {
		r.DistanceKM = *u.DistanceKM
	}
	if u.TimeHours != nil {
		r.TimeHours = *u.TimeHours
	}
	if u.Capacity != nil {
		r.Capacity = *u.Capacity
	}
	if u.Available != nil {
		r.Available = *u.Available
	}
	return r
}
