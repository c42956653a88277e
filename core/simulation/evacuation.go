package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/routing"
)

const (
	earthRadiusKM     = 6371
	fallbackKM        = 50.0
	personsPerVehicle = 50
	convoySpeedKMH    = 40.0
)

// DistanceSource tells where a plan's distance came from.
type DistanceSource string

const (
	FromRoute     DistanceSource = "route"
	FromHaversine DistanceSource = "haversine"
	FromEstimate  DistanceSource = "estimate"
)

// PlanInput describes an evacuation to plan.
type PlanInput struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Persons     int    `json:"persons"`
}

// ResourceNeed is the requirement for one kind against the origin stock.
type ResourceNeed struct {
	Kind      model.ResourceKind `json:"kind"`
	Required  int64              `json:"required"`
	Available int64              `json:"available"`
	Shortfall int64              `json:"shortfall"`
}

// EvacuationPlan is a read-only estimate of an evacuation.
type EvacuationPlan struct {
	Origin         string         `json:"origin"`
	Destination    string         `json:"destination"`
	Persons        int            `json:"persons"`
	Route          []string       `json:"route"`
	DistanceKM     float64        `json:"distance_km"`
	DistanceSource DistanceSource `json:"distance_source"`
	Vehicles       int            `json:"vehicles"`
	EstimatedHours float64        `json:"estimated_hours"`
	Resources      []ResourceNeed `json:"resources"`
	Steps          []string       `json:"steps"`
}

// Evacuation plans moving in.Persons from the origin to the destination zone.
// Nothing is reserved or written.
func (s *Simulator) Evacuation(ctx context.Context, in PlanInput) (EvacuationPlan, error) {
	if in.Persons <= 0 {
		return EvacuationPlan{}, fmt.Errorf("%w: persons %d", model.ErrInvalidQuantity, in.Persons)
	}
	if in.Origin == in.Destination {
		return EvacuationPlan{}, fmt.Errorf("%w: origin equals destination", model.ErrSameLocation)
	}
	from, err := s.zones.Zone(in.Origin)
	if err != nil {
		return EvacuationPlan{}, err
	}
	to, err := s.zones.Zone(in.Destination)
	if err != nil {
		return EvacuationPlan{}, err
	}

	plan := EvacuationPlan{Origin: from.Name, Destination: to.Name, Persons: in.Persons}
	path, err := s.paths.ShortestPath(from.ID, to.ID, routing.Distance)
	switch {
	case err == nil:
		plan.DistanceKM = path.TotalDistanceKM
		plan.DistanceSource = FromRoute
		plan.Route = append(plan.Route, from.Name)
		for _, seg := range path.Segments {
			plan.Route = append(plan.Route, s.zoneName(seg.To))
		}
	case errors.Is(err, model.ErrNoPathFound):
		plan.Route = []string{from.Name, to.Name}
		if from.Position != nil && to.Position != nil {
			plan.DistanceKM = Haversine(*from.Position, *to.Position)
			plan.DistanceSource = FromHaversine
		} else {
			plan.DistanceKM = fallbackKM
			plan.DistanceSource = FromEstimate
		}
	default:
		return EvacuationPlan{}, err
	}

	n := int64(in.Persons)
	plan.Vehicles = (in.Persons + personsPerVehicle - 1) / personsPerVehicle
	hours := (plan.DistanceKM/convoySpeedKMH + float64(in.Persons)/1000*0.5) * 1.5
	plan.EstimatedHours = round1(hours)

	required := []struct {
		kind model.ResourceKind
		qty  int64
	}{
		{model.Water, 3 * n},
		{model.Food, 2 * n},
		{model.Medicine, n / 10},
		{model.Blankets, n},
		{model.Equipment, int64(plan.Vehicles) * 2},
		{model.Fuel, int64(math.Ceil(plan.DistanceKM * float64(plan.Vehicles) * 2))},
	}
	for _, r := range required {
		have, err := s.stock.Quantity(ctx, from.ID, r.kind)
		if err != nil {
			return EvacuationPlan{}, err
		}
		plan.Resources = append(plan.Resources, ResourceNeed{
			Kind:      r.kind,
			Required:  r.qty,
			Available: have,
			Shortfall: max(0, r.qty-have),
		})
	}
	plan.DistanceKM = round1(plan.DistanceKM)

	plan.Steps = []string{
		fmt.Sprintf("Prepare %d vehicles and gather evacuees at %s", plan.Vehicles, from.Name),
		fmt.Sprintf("Transport %d persons along %s", in.Persons, strings.Join(plan.Route, " -> ")),
		fmt.Sprintf("Receive evacuees at %s and distribute supplies", to.Name),
		fmt.Sprintf("Close the operation and confirm headcount at %s", to.Name),
	}
	return plan, nil
}

func (s *Simulator) zoneName(id string) string {
	if z, err := s.zones.Zone(id); err == nil {
		return z.Name
	}
	return id
}

// Haversine returns the great circle distance in kilometres.
func Haversine(a, b model.Position) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
