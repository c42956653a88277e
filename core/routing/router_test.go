package routing

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/graph"
	"github.com/kilianp07/relief/core/model"
)

type fixture struct {
	g      *graph.Graph
	zones  map[string]string
	routes map[string]string
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	f := &fixture{g: graph.New(), zones: map[string]string{}, routes: map[string]string{}}
	for _, n := range names {
		id, err := f.g.AddZone(context.Background(), model.Zone{Name: n, Population: 100, Risk: 10})
		require.NoError(t, err)
		f.zones[n] = id
	}
	return f
}

func (f *fixture) route(t *testing.T, from, to string, dist, hours, capacity float64) string {
	t.Helper()
	id, err := f.g.AddRoute(context.Background(), model.Route{
		Origin: f.zones[from], Destination: f.zones[to],
		DistanceKM: dist, TimeHours: hours, Capacity: capacity, Available: true,
	})
	require.NoError(t, err)
	f.routes[from+to] = id
	return id
}

func (f *fixture) router(bidirectional bool) *Router {
	cfg := Config{Bidirectional: bidirectional}
	cfg.SetDefaults()
	return New(f.g, cfg, nil)
}

func (f *fixture) names(p Path) []string {
	byID := map[string]string{}
	for n, id := range f.zones {
		byID[id] = n
	}
	out := []string{byID[p.Origin]}
	for _, s := range p.Segments {
		out = append(out, byID[s.To])
	}
	return out
}

func TestShortestPathPrefersTwoHopsWhenCheaper(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.route(t, "A", "B", 10, 1, 100)
	f.route(t, "B", "C", 5, 1, 100)
	f.route(t, "A", "C", 20, 1, 100)

	p, err := f.router(false).ShortestPath(f.zones["A"], f.zones["C"], Distance)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, f.names(p))
	assert.Equal(t, 15.0, p.TotalDistanceKM)
	assert.Equal(t, 2, p.SegmentCount)
	assert.Equal(t, 2.0, p.TotalTimeHours)
}

func TestShortestPathByTime(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.route(t, "A", "B", 10, 2, 100)
	f.route(t, "B", "C", 5, 2, 100)
	f.route(t, "A", "C", 20, 1.5, 100)

	p, err := f.router(false).ShortestPath(f.zones["A"], f.zones["C"], Time)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, f.names(p))
	assert.Equal(t, 1.5, p.TotalTimeHours)
	assert.Equal(t, Time, p.Metric)
}

func TestTieBreakMaximisesBottleneck(t *testing.T) {
	f := newFixture(t, "A", "B", "C", "D")
	f.route(t, "A", "B", 5, 1, 50)
	f.route(t, "B", "D", 5, 1, 500)
	f.route(t, "A", "C", 5, 1, 300)
	f.route(t, "C", "D", 5, 1, 200)

	p, err := f.router(false).ShortestPath(f.zones["A"], f.zones["D"], Distance)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, f.names(p))
	assert.Equal(t, 200.0, p.Capacity)
}

func TestUnavailableRoutesAreSkipped(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.route(t, "A", "B", 10, 1, 100)
	bc := f.route(t, "B", "C", 5, 1, 100)
	ac := f.route(t, "A", "C", 20, 1, 100)
	r := f.router(false)

	_, err := f.g.SetAvailability(context.Background(), bc, false)
	require.NoError(t, err)
	p, err := r.ShortestPath(f.zones["A"], f.zones["C"], Distance)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, f.names(p))
	assert.Equal(t, 20.0, p.TotalDistanceKM)

	_, err = f.g.SetAvailability(context.Background(), ac, false)
	require.NoError(t, err)
	_, err = r.ShortestPath(f.zones["A"], f.zones["C"], Distance)
	assert.ErrorIs(t, err, model.ErrNoPathFound)
}

func TestShortestPathErrors(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.route(t, "A", "B", 10, 1, 100)
	r := f.router(false)

	_, err := r.ShortestPath(f.zones["A"], f.zones["C"], Distance)
	assert.ErrorIs(t, err, model.ErrNoPathFound)

	_, err = r.ShortestPath(f.zones["A"], "ghost", Distance)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = r.ShortestPath(f.zones["A"], f.zones["A"], Distance)
	assert.ErrorIs(t, err, model.ErrSameLocation)
}

func TestDirectedUnlessBidirectional(t *testing.T) {
	f := newFixture(t, "A", "B")
	ab := f.route(t, "A", "B", 10, 1, 100)

	_, err := f.router(false).ShortestPath(f.zones["B"], f.zones["A"], Distance)
	assert.ErrorIs(t, err, model.ErrNoPathFound)

	p, err := f.router(true).ShortestPath(f.zones["B"], f.zones["A"], Distance)
	require.NoError(t, err)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, ab, p.Segments[0].RouteID)
	assert.True(t, p.Segments[0].Reversed)
	assert.Equal(t, f.zones["B"], p.Segments[0].From)
	assert.Equal(t, f.zones["A"], p.Segments[0].To)
}

func TestAlternatives(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	f.route(t, "A", "B", 10, 1, 100)
	f.route(t, "B", "C", 5, 1, 100)
	f.route(t, "A", "C", 20, 1, 100)
	r := f.router(false)

	paths, err := r.Alternatives(f.zones["A"], f.zones["C"], Distance, 3)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, []string{"A", "B", "C"}, f.names(paths[0]))
	assert.Equal(t, []string{"A", "C"}, f.names(paths[1]))

	one, err := r.Alternatives(f.zones["A"], f.zones["C"], Distance, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	_, err = r.Alternatives(f.zones["A"], f.zones["C"], Distance, 0)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

// bruteForce enumerates every simple path over available routes.
func bruteForce(g *graph.Graph, from, to string, m Metric) float64 {
	best := math.Inf(1)
	visited := map[string]bool{}
	var walk func(at string, cost float64)
	walk = func(at string, cost float64) {
		if at == to {
			best = math.Min(best, cost)
			return
		}
		visited[at] = true
		seq, _ := g.Neighbors(at)
		for e := range seq {
			if !e.Available || visited[e.To] {
				continue
			}
			w := e.DistanceKM
			if m == Time {
				w = e.TimeHours
			}
			walk(e.To, cost+w)
		}
		visited[at] = false
	}
	walk(from, 0)
	return best
}

func TestShortestPathMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 40; round++ {
		names := []string{"A", "B", "C", "D", "E", "F"}
		f := newFixture(t, names...)
		for i := 0; i < 12; i++ {
			a, b := names[rng.Intn(len(names))], names[rng.Intn(len(names))]
			if a == b {
				continue
			}
			id := f.route(t, a, b, float64(1+rng.Intn(20)), float64(1+rng.Intn(5)), float64(10+rng.Intn(100)))
			if rng.Intn(5) == 0 {
				_, err := f.g.SetAvailability(context.Background(), id, false)
				require.NoError(t, err)
			}
		}
		r := f.router(false)
		for _, m := range []Metric{Distance, Time} {
			want := bruteForce(f.g, f.zones["A"], f.zones["F"], m)
			p, err := r.ShortestPath(f.zones["A"], f.zones["F"], m)
			if math.IsInf(want, 1) {
				assert.ErrorIs(t, err, model.ErrNoPathFound)
				continue
			}
			require.NoError(t, err)
			assert.InDelta(t, want, p.Cost(), 1e-9, "round %d metric %s", round, m)
		}
	}
}

func TestQueriesDuringUpdates(t *testing.T) {
	f := newFixture(t, "A", "B", "C")
	ab := f.route(t, "A", "B", 10, 1, 100)
	f.route(t, "B", "C", 5, 1, 100)
	f.route(t, "A", "C", 20, 1, 100)
	r := f.router(false)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			d := float64(5 + i%30)
			_, _ = f.g.UpdateRoute(context.Background(), ab, model.RouteUpdate{DistanceKM: &d})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			p, err := r.ShortestPath(f.zones["A"], f.zones["C"], Distance)
			if assert.NoError(t, err) {
				assert.LessOrEqual(t, p.TotalDistanceKM, 20.0)
			}
		}
	}()
	wg.Wait()
}

func TestParseMetricAndConfig(t *testing.T) {
	m, err := ParseMetric("TIME")
	require.NoError(t, err)
	assert.Equal(t, Time, m)
	_, err = ParseMetric("fuel")
	assert.Error(t, err)

	cfg := Config{}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())
	cfg.DefaultMetric = "speed"
	assert.Error(t, cfg.Validate())
}

func TestPathJSONRoundTrip(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.route(t, "A", "B", 10, 2, 100)
	p, err := f.router(false).ShortestPath(f.zones["A"], f.zones["B"], Time)
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"metric":"time"`)
	var got Path
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, p, got)

	var m Metric
	assert.ErrorIs(t, json.Unmarshal([]byte(`"fuel"`), &m), ErrUnknownMetric)
}
