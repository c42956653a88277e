package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/graph"
	"github.com/kilianp07/relief/core/ledger"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/routing"
)

type fixture struct {
	g      *graph.Graph
	ledger *ledger.Ledger
	sim    *Simulator
	ids    map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	g := graph.New()
	ids := map[string]string{}
	for _, z := range []model.Zone{
		{Name: "Bogota", Population: 1000, Risk: 70, Position: &model.Position{Lat: 4.711, Lng: -74.0721}},
		{Name: "Medellin", Population: 500, Risk: 20, Position: &model.Position{Lat: 6.2442, Lng: -75.5812}},
		{Name: "Cali", Population: 300, Risk: 10},
		{Name: "Shelter", Population: 0, Type: model.ZoneShelter},
	} {
		id, err := g.AddZone(ctx, z)
		require.NoError(t, err)
		ids[z.Name] = id
	}
	for _, r := range []model.Route{
		{Origin: ids["Bogota"], Destination: ids["Shelter"], DistanceKM: 30, TimeHours: 1, Capacity: 10, Available: true},
		{Origin: ids["Shelter"], Destination: ids["Cali"], DistanceKM: 20, TimeHours: 1, Capacity: 10, Available: true},
	} {
		_, err := g.AddRoute(ctx, r)
		require.NoError(t, err)
	}
	var rc routing.Config
	rc.SetDefaults()
	var lc ledger.Config
	lc.SetDefaults()
	l := ledger.New(lc, nil)
	return &fixture{g: g, ledger: l, sim: New(g, routing.New(g, rc, nil), l, 80, nil), ids: ids}
}

func TestParseDisasterType(t *testing.T) {
	d, err := ParseDisasterType("terremoto")
	require.NoError(t, err)
	assert.Equal(t, Earthquake, d)
	d, err = ParseDisasterType(" flood ")
	require.NoError(t, err)
	assert.Equal(t, Flood, d)
	_, err = ParseDisasterType("meteor")
	assert.ErrorIs(t, err, ErrUnknownDisaster)
}

func TestRiskIncrement(t *testing.T) {
	cases := []struct {
		typ       DisasterType
		intensity int
		want      int
	}{
		{Earthquake, 40, 30},
		{Hurricane, 50, 35},
		{Flood, 21, 12},
		{Fire, 100, 65},
		{Landslide, 10, 6},
		{Drought, 30, 12},
		{Earthquake, 1, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RiskIncrement(c.typ, c.intensity), "%s %d", c.typ, c.intensity)
	}
}

func TestDisasterDryRun(t *testing.T) {
	f := newFixture(t)
	res, err := f.sim.Disaster(context.Background(), DisasterInput{
		Type: "EARTHQUAKE", Intensity: 40, Zones: []string{f.ids["Bogota"], f.ids["Medellin"]},
	})
	require.NoError(t, err)
	require.Len(t, res.Zones, 2)
	assert.Equal(t, 30, res.RiskIncrement)
	assert.Equal(t, 100, res.Zones[0].NewRisk)
	assert.True(t, res.Zones[0].Critical)
	assert.Equal(t, 1000, res.Zones[0].AffectedPopulation)
	assert.Equal(t, 50, res.Zones[1].NewRisk)
	assert.Equal(t, 250, res.Zones[1].AffectedPopulation)
	assert.Equal(t, 1250, res.TotalAffected)
	assert.False(t, res.Applied)

	z, err := f.g.Zone(f.ids["Bogota"])
	require.NoError(t, err)
	assert.Equal(t, 70, z.Risk, "dry run leaves the graph untouched")
}

func TestDisasterApply(t *testing.T) {
	f := newFixture(t)
	res, err := f.sim.Disaster(context.Background(), DisasterInput{
		Type: "FIRE", Intensity: 20, Zones: []string{f.ids["Cali"]}, Apply: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	z, err := f.g.Zone(f.ids["Cali"])
	require.NoError(t, err)
	assert.Equal(t, 23, z.Risk)
}

func TestDisasterRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.sim.Disaster(ctx, DisasterInput{Type: "FLOOD", Intensity: 0, Zones: []string{f.ids["Cali"]}})
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	_, err = f.sim.Disaster(ctx, DisasterInput{Type: "FLOOD", Intensity: 10})
	assert.ErrorIs(t, err, model.ErrInvalidZone)
	_, err = f.sim.Disaster(ctx, DisasterInput{Type: "FLOOD", Intensity: 90, Zones: []string{f.ids["Cali"], "ghost"}, Apply: true})
	assert.ErrorIs(t, err, model.ErrNotFound)
	z, err := f.g.Zone(f.ids["Cali"])
	require.NoError(t, err)
	assert.Equal(t, 10, z.Risk, "nothing applied when a zone is unknown")
}

func TestEvacuationPlanAlongRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Add(ctx, f.ids["Bogota"], model.Water, 100)
	require.NoError(t, err)

	plan, err := f.sim.Evacuation(ctx, PlanInput{Origin: f.ids["Bogota"], Destination: f.ids["Cali"], Persons: 1000})
	require.NoError(t, err)
	assert.Equal(t, FromRoute, plan.DistanceSource)
	assert.Equal(t, []string{"Bogota", "Shelter", "Cali"}, plan.Route)
	assert.InDelta(t, 50, plan.DistanceKM, 1e-9)
	assert.Equal(t, 20, plan.Vehicles)
	// (50/40 + 1000/1000*0.5) * 1.5
	assert.InDelta(t, 2.6, plan.EstimatedHours, 1e-9)
	require.Len(t, plan.Steps, 4)

	need := map[model.ResourceKind]ResourceNeed{}
	for _, r := range plan.Resources {
		need[r.Kind] = r
	}
	assert.Equal(t, ResourceNeed{Kind: model.Water, Required: 3000, Available: 100, Shortfall: 2900}, need[model.Water])
	assert.Equal(t, int64(2000), need[model.Food].Required)
	assert.Equal(t, int64(100), need[model.Medicine].Required)
	assert.Equal(t, int64(1000), need[model.Blankets].Required)
	assert.Equal(t, int64(40), need[model.Equipment].Required)
	assert.Equal(t, int64(2000), need[model.Fuel].Required)
}

func TestEvacuationPlanFallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.sim.Evacuation(ctx, PlanInput{Origin: f.ids["Bogota"], Destination: f.ids["Medellin"], Persons: 50})
	require.NoError(t, err)
	assert.Equal(t, FromHaversine, plan.DistanceSource)
	assert.InDelta(t, 240, plan.DistanceKM, 15)
	assert.Equal(t, 1, plan.Vehicles)

	plan, err = f.sim.Evacuation(ctx, PlanInput{Origin: f.ids["Cali"], Destination: f.ids["Bogota"], Persons: 10})
	require.NoError(t, err)
	assert.Equal(t, FromEstimate, plan.DistanceSource)
	assert.Equal(t, 50.0, plan.DistanceKM)
	assert.Equal(t, []string{"Cali", "Bogota"}, plan.Route)
}

func TestEvacuationPlanValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.sim.Evacuation(ctx, PlanInput{Origin: f.ids["Cali"], Destination: f.ids["Bogota"]})
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	_, err = f.sim.Evacuation(ctx, PlanInput{Origin: f.ids["Cali"], Destination: f.ids["Cali"], Persons: 1})
	assert.ErrorIs(t, err, model.ErrSameLocation)
	_, err = f.sim.Evacuation(ctx, PlanInput{Origin: "ghost", Destination: f.ids["Cali"], Persons: 1})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
