package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/graph"
	"github.com/kilianp07/relief/core/ledger"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/routing"
	"github.com/kilianp07/relief/core/teams"
)

func TestBuiltinScenario(t *testing.T) {
	s, err := Load(BuiltinName)
	require.NoError(t, err)
	assert.Len(t, s.Zones, 5)
	assert.Len(t, s.Routes, 5)
	assert.Len(t, s.Teams, 5)

	ctx := context.Background()
	g := graph.New()
	var lc ledger.Config
	lc.SetDefaults()
	l := ledger.New(lc, nil)
	roster := teams.New(g, nil)

	applied, err := s.Apply(ctx, g, l, roster)
	require.NoError(t, err)
	assert.Equal(t, 5, applied.Routes)
	assert.Equal(t, 5, applied.Stocks)
	assert.Equal(t, 5, applied.Teams)
	assert.Len(t, g.Zones(), 5)

	q, err := l.Quantity(ctx, "centro-armenia", model.Water)
	require.NoError(t, err)
	assert.Equal(t, int64(800), q)

	var rc routing.Config
	rc.SetDefaults()
	r := routing.New(g, rc, nil)
	path, err := r.ShortestPath(applied.Zones["Bogotá Centro"], applied.Zones["La Tebaida"], routing.Distance)
	require.NoError(t, err)
	assert.Equal(t, 3, path.SegmentCount)
	assert.InDelta(t, 15.5, path.TotalDistanceKM, 1e-9)

	shelter, ok := g.ZoneByName("Refugio Medellín")
	require.True(t, ok)
	assert.Equal(t, model.ZoneShelter, shelter.Type)
	require.NotNil(t, shelter.Position)
	assert.InDelta(t, 6.2442, shelter.Position.Lat, 1e-9)
}

func TestLoadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	body := `{
		"name": "small",
		"zones": [{"name": "A", "population": 10, "risk": 20}, {"name": "B", "population": 5}],
		"routes": [{"from": "A", "to": "B", "distance_km": 1, "time_hours": 1, "capacity": 1, "available": false}],
		"stocks": [{"location": "A", "kind": "agua", "quantity": 7}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "small", s.Name)

	ctx := context.Background()
	g := graph.New()
	var lc ledger.Config
	lc.SetDefaults()
	l := ledger.New(lc, nil)
	applied, err := s.Apply(ctx, g, l, nil)
	require.NoError(t, err)

	routes := g.Routes()
	require.Len(t, routes, 1)
	assert.False(t, routes[0].Available)
	q, err := l.Quantity(ctx, applied.Zones["A"], model.Water)
	require.NoError(t, err)
	assert.Equal(t, int64(7), q, "zone named locations resolve to zone ids")
}

func TestParseRejectsBadScenarios(t *testing.T) {
	cases := map[string]string{
		"duplicate zone": "zones: [{name: A}, {name: A}]",
		"unknown route":  "zones: [{name: A}]\nroutes: [{from: A, to: B, distance_km: 1, time_hours: 1, capacity: 1}]",
		"bad kind":       "stocks: [{location: w, kind: gold, quantity: 1}]",
		"bad team":       "teams: [{name: x, type: pilots, members: 1}]",
		"half position":  "zones: [{name: A, lat: 1}]",
		"bad yaml":       "zones: [",
	}
	for name, body := range cases {
		_, err := Parse([]byte(body), "yaml")
		assert.Error(t, err, name)
	}
	_, err := Parse([]byte("{}"), "toml")
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyStopsOnInvalidZone(t *testing.T) {
	s, err := Parse([]byte("zones: [{name: A, risk: 150}]"), "yaml")
	require.NoError(t, err)
	var lc ledger.Config
	lc.SetDefaults()
	_, err = s.Apply(context.Background(), graph.New(), ledger.New(lc, nil), nil)
	assert.ErrorIs(t, err, model.ErrInvalidZone)
}
