package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/factory"
	"github.com/kilianp07/relief/core/graph"
	"github.com/kilianp07/relief/core/ledger"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/scheduler"
)

var (
	_ Store               = (*Memory)(nil)
	_ graph.Persister     = Store(nil)
	_ ledger.Persister    = Store(nil)
	_ scheduler.Persister = Store(nil)
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Empty())

	require.NoError(t, m.SaveZone(ctx, model.Zone{ID: "z2", Name: "B", Population: 5, InitialPopulation: 5}))
	require.NoError(t, m.SaveZone(ctx, model.Zone{ID: "z1", Name: "A", Teams: []string{"t1"}}))
	require.NoError(t, m.SaveRoute(ctx, model.Route{ID: "r1", Origin: "z1", Destination: "z2", DistanceKM: 3}))
	require.NoError(t, m.SaveRoute(ctx, model.Route{ID: "r2", Origin: "z2", Destination: "z1", DistanceKM: 3}))
	require.NoError(t, m.DeleteRoute(ctx, "r2"))
	tr := &model.Transfer{ID: "t", Source: "z1", Dest: "z2", Kind: model.Food, Quantity: 4, At: time.Now()}
	require.NoError(t, m.SaveStocks(ctx, []model.StockEntry{
		{Key: "z1", Kind: model.Food, Quantity: 6},
		{Key: "z2", Kind: model.Food, Quantity: 4},
	}, tr))
	require.NoError(t, m.SaveStocks(ctx, []model.StockEntry{{Key: "z1", Kind: model.Food, Quantity: 1}}, nil))
	require.NoError(t, m.SaveEvacuation(ctx, model.EvacuationRequest{ID: "e2", Seq: 2}))
	require.NoError(t, m.SaveEvacuation(ctx, model.EvacuationRequest{ID: "e1", Seq: 1}))
	require.NoError(t, m.SaveTeam(ctx, model.Team{ID: "t1", Name: "Medics", Type: model.TeamMedical, Members: 4}))

	snap, err = m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Zones, 2)
	assert.Equal(t, "z1", snap.Zones[0].ID)
	assert.Equal(t, []string{"t1"}, snap.Zones[0].Teams)
	require.Len(t, snap.Routes, 1)
	assert.Equal(t, "r1", snap.Routes[0].ID)
	assert.Equal(t, []model.StockEntry{
		{Key: "z1", Kind: model.Food, Quantity: 1},
		{Key: "z2", Kind: model.Food, Quantity: 4},
	}, snap.Stocks)
	assert.Equal(t, "e1", snap.Evacuations[0].ID)
	assert.Len(t, snap.Teams, 1)
	assert.Len(t, m.Transfers(), 1)
}

func TestMemoryRestoresComponents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	g := graph.New(graph.WithPersister(m))
	a, err := g.AddZone(ctx, model.Zone{Name: "A", Population: 10})
	require.NoError(t, err)
	b, err := g.AddZone(ctx, model.Zone{Name: "B"})
	require.NoError(t, err)
	_, err = g.AddRoute(ctx, model.Route{Origin: a, Destination: b, DistanceKM: 2, TimeHours: 1, Capacity: 5, Available: true})
	require.NoError(t, err)

	snap, err := m.Load(ctx)
	require.NoError(t, err)
	g2 := graph.New()
	require.NoError(t, g2.Restore(snap.Zones, snap.Routes))
	assert.Len(t, g2.Zones(), 2)
	assert.Len(t, g2.Routes(), 1)
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.Contains(t, Backends(), "memory")

	_, err = New(factory.ModuleConfig{Type: "tape"})
	assert.ErrorContains(t, err, "unknown storage type")
	assert.Error(t, Register("memory", func(map[string]any) (Store, error) { return NewMemory(), nil }))
}
