package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/model"
)

type recordingPersister struct {
	mu      sync.Mutex
	zones   []model.Zone
	routes  []model.Route
	deleted []string
	fail    error
}

func (p *recordingPersister) SaveZone(_ context.Context, z model.Zone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.zones = append(p.zones, z)
	return nil
}

func (p *recordingPersister) SaveRoute(_ context.Context, r model.Route) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.routes = append(p.routes, r)
	return nil
}

func (p *recordingPersister) DeleteRoute(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.deleted = append(p.deleted, id)
	return nil
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func addZone(t *testing.T, g *Graph, name string, pop, risk int) string {
	t.Helper()
	id, err := g.AddZone(context.Background(), model.Zone{Name: name, Population: pop, Risk: risk})
	require.NoError(t, err)
	return id
}

func addRoute(t *testing.T, g *Graph, from, to string, dist float64) string {
	t.Helper()
	id, err := g.AddRoute(context.Background(), model.Route{
		Origin: from, Destination: to, DistanceKM: dist, TimeHours: dist / 40, Capacity: 100, Available: true,
	})
	require.NoError(t, err)
	return id
}

func TestAddZoneDefaults(t *testing.T) {
	g := New(WithIDGenerator(seqIDs()))
	id := addZone(t, g, "A", 1000, 80)
	assert.Equal(t, "id-1", id)

	z, err := g.Zone(id)
	require.NoError(t, err)
	assert.Equal(t, 1000, z.InitialPopulation)
	assert.Equal(t, model.ZoneAffected, z.Type)
	assert.NotNil(t, z.Teams)
	assert.False(t, z.Evacuated)
	data, err := json.Marshal(g.Zones())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"teams":[]`)

	_, err = g.AddZone(context.Background(), model.Zone{Name: "bad", Risk: 150})
	assert.ErrorIs(t, err, model.ErrInvalidZone)

	_, err = g.AddZone(context.Background(), model.Zone{ID: id, Name: "dup"})
	assert.ErrorIs(t, err, model.ErrInvalidZone)
}

func TestZoneNotFound(t *testing.T) {
	g := New()
	_, err := g.Zone("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = g.Neighbors("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = g.UpdateZone(context.Background(), "missing", model.ZoneUpdate{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAddRouteValidation(t *testing.T) {
	g := New()
	a := addZone(t, g, "A", 10, 10)
	b := addZone(t, g, "B", 10, 10)

	_, err := g.AddRoute(context.Background(), model.Route{Origin: a, Destination: a, DistanceKM: 1, TimeHours: 1, Capacity: 1})
	assert.ErrorIs(t, err, model.ErrInvalidEdge)

	_, err = g.AddRoute(context.Background(), model.Route{Origin: a, Destination: "nope", DistanceKM: 1, TimeHours: 1, Capacity: 1})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = g.AddRoute(context.Background(), model.Route{Origin: a, Destination: b, DistanceKM: -1, TimeHours: 1, Capacity: 1})
	assert.ErrorIs(t, err, model.ErrInvalidEdge)

	_, err = g.UpdateRoute(context.Background(), "nope", model.RouteUpdate{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestNeighborsRestartable(t *testing.T) {
	g := New()
	a := addZone(t, g, "A", 10, 10)
	b := addZone(t, g, "B", 10, 10)
	c := addZone(t, g, "C", 10, 10)
	addRoute(t, g, a, b, 10)
	rc := addRoute(t, g, a, c, 20)
	addRoute(t, g, b, c, 5)

	seq, err := g.Neighbors(a)
	require.NoError(t, err)
	var first, second []string
	for e := range seq {
		first = append(first, e.To)
	}
	for e := range seq {
		second = append(second, e.To)
	}
	assert.Equal(t, []string{b, c}, first)
	assert.Equal(t, first, second)

	_, err = g.SetAvailability(context.Background(), rc, false)
	require.NoError(t, err)
	seq, _ = g.Neighbors(a)
	for e := range seq {
		if e.RouteID == rc {
			assert.False(t, e.Available)
		}
	}
}

func TestUpdateRouteRelinks(t *testing.T) {
	g := New()
	a := addZone(t, g, "A", 10, 10)
	b := addZone(t, g, "B", 10, 10)
	c := addZone(t, g, "C", 10, 10)
	r := addRoute(t, g, a, b, 10)

	_, err := g.UpdateRoute(context.Background(), r, model.RouteUpdate{Origin: &c})
	require.NoError(t, err)

	seq, _ := g.Neighbors(a)
	for range seq {
		t.Fatal("route should have left A")
	}
	seq, _ = g.Neighbors(c)
	var n int
	for e := range seq {
		n++
		assert.Equal(t, b, e.To)
	}
	assert.Equal(t, 1, n)

	_, err = g.UpdateRoute(context.Background(), r, model.RouteUpdate{Destination: &c})
	assert.ErrorIs(t, err, model.ErrInvalidEdge)
}

func TestDeleteRoute(t *testing.T) {
	p := &recordingPersister{}
	g := New(WithPersister(p))
	a := addZone(t, g, "A", 10, 10)
	b := addZone(t, g, "B", 10, 10)
	r := addRoute(t, g, a, b, 10)

	require.NoError(t, g.DeleteRoute(context.Background(), r))
	assert.Empty(t, g.Routes())
	_, err := g.Route(r)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, g.DeleteRoute(context.Background(), r), model.ErrNotFound)
	assert.Equal(t, []string{r}, p.deleted)
}

func TestEvacuateFloorsAtZero(t *testing.T) {
	g := New()
	a := addZone(t, g, "A", 100, 50)

	z, err := g.Evacuate(context.Background(), a, 40)
	require.NoError(t, err)
	assert.Equal(t, 60, z.Population)
	assert.False(t, z.Evacuated)

	z, err = g.Evacuate(context.Background(), a, 500)
	require.NoError(t, err)
	assert.Equal(t, 0, z.Population)
	assert.True(t, z.Evacuated)
	assert.Equal(t, 100, z.InitialPopulation)

	_, err = g.Evacuate(context.Background(), a, 0)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestPersisterFailureRollsBack(t *testing.T) {
	p := &recordingPersister{}
	g := New(WithPersister(p))
	a := addZone(t, g, "A", 100, 50)

	p.fail = errors.New("disk full")
	risk := 90
	_, err := g.UpdateZone(context.Background(), a, model.ZoneUpdate{Risk: &risk})
	require.Error(t, err)

	z, _ := g.Zone(a)
	assert.Equal(t, 50, z.Risk)

	_, err = g.AddZone(context.Background(), model.Zone{Name: "B"})
	require.Error(t, err)
	assert.Len(t, g.Zones(), 1)
}

func TestTeams(t *testing.T) {
	g := New()
	a := addZone(t, g, "A", 100, 50)
	_, err := g.AssignTeam(context.Background(), a, "t1")
	require.NoError(t, err)
	z, err := g.AssignTeam(context.Background(), a, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, z.Teams)

	z, err = g.ReleaseTeam(context.Background(), a, "t1")
	require.NoError(t, err)
	assert.Empty(t, z.Teams)
}

func TestRestore(t *testing.T) {
	g := New()
	err := g.Restore(
		[]model.Zone{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		[]model.Route{{ID: "r1", Origin: "a", Destination: "b", DistanceKM: 1, TimeHours: 1, Capacity: 1, Available: true}},
	)
	require.NoError(t, err)
	assert.Len(t, g.Routes(), 1)

	z, ok := g.ZoneByName("B")
	require.True(t, ok)
	assert.Equal(t, "b", z.ID)

	err = New().Restore(nil, []model.Route{{ID: "r1", Origin: "x", Destination: "y"}})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRestoreRejectsCorruptRoutes(t *testing.T) {
	zones := []model.Zone{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	good := model.Route{ID: "r1", Origin: "a", Destination: "b", DistanceKM: 1, TimeHours: 1, Capacity: 1, Available: true}

	selfLoop := good
	selfLoop.Destination = "a"
	assert.ErrorIs(t, New().Restore(zones, []model.Route{selfLoop}), model.ErrInvalidEdge)

	zeroWeight := good
	zeroWeight.DistanceKM = 0
	assert.ErrorIs(t, New().Restore(zones, []model.Route{zeroWeight}), model.ErrInvalidEdge)

	assert.ErrorIs(t, New().Restore(zones, []model.Route{good, good}), model.ErrInvalidEdge)
}

func TestConcurrentEvacuations(t *testing.T) {
	g := New()
	a := addZone(t, g, "A", 1000, 50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Evacuate(context.Background(), a, 10)
		}()
	}
	wg.Wait()
	z, _ := g.Zone(a)
	assert.Equal(t, 500, z.Population)
}

func TestViewIndexes(t *testing.T) {
	g := New()
	a := addZone(t, g, "A", 10, 10)
	b := addZone(t, g, "B", 10, 10)
	addRoute(t, g, a, b, 3)
	g.Read(func(v View) {
		ia, ok := v.Index(a)
		require.True(t, ok)
		ib, _ := v.Index(b)
		assert.Equal(t, 2, v.NumZones())
		var outs, ins int
		v.Out(ia, func(r model.Route, to int) bool {
			outs++
			assert.Equal(t, ib, to)
			return true
		})
		v.In(ib, func(r model.Route, from int) bool {
			ins++
			assert.Equal(t, ia, from)
			return true
		})
		assert.Equal(t, 1, outs)
		assert.Equal(t, 1, ins)
		assert.Equal(t, "A", v.Zone(ia).Name)
	})
}
