// Package routing computes lowest cost paths over the zone graph.
//
// Dijkstra runs on a consistent read snapshot of the graph, considers only
// available routes and breaks cost ties in favour of the path with the larger
// bottleneck capacity.
package routing

import (
	"container/heap"
	"fmt"
	"math"
	"slices"

	"github.com/kilianp07/relief/core/graph"
	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/model"
)

// costEpsilon absorbs floating point noise when comparing path costs.
const costEpsilon = 1e-9

// Router answers shortest path queries.
type Router struct {
	g             *graph.Graph
	bidirectional bool
	defaultMetric Metric
	maxAlt        int
	log           logger.Logger
}

// New creates a Router over g. cfg must have been validated.
func New(g *graph.Graph, cfg Config, log logger.Logger) *Router {
	m, err := ParseMetric(cfg.DefaultMetric)
	if err != nil {
		m = Distance
	}
	maxAlt := cfg.MaxAlternatives
	if maxAlt < 1 {
		maxAlt = 1
	}
	return &Router{g: g, bidirectional: cfg.Bidirectional, defaultMetric: m, maxAlt: maxAlt, log: logger.OrNop(log)}
}

// DefaultMetric returns the metric used when callers do not pick one.
func (r *Router) DefaultMetric() Metric { return r.defaultMetric }

// label orders tentative paths: lower cost first, then higher bottleneck.
type label struct {
	cost       float64
	bottleneck float64
}

func (a label) better(b label) bool {
	if a.cost < b.cost-costEpsilon {
		return true
	}
	if a.cost > b.cost+costEpsilon {
		return false
	}
	return a.bottleneck > b.bottleneck
}

type hop struct {
	route    model.Route
	prev     int
	reversed bool
}

type queueItem struct {
	node int
	label
}

type labelQueue []queueItem

func (q labelQueue) Len() int           { return len(q) }
func (q labelQueue) Less(i, j int) bool { return q[i].better(q[j].label) }
func (q labelQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *labelQueue) Push(x any)        { *q = append(*q, x.(queueItem)) }
func (q *labelQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// ShortestPath returns the minimum cost path from origin to destination over
// available routes. It fails with model.ErrNoPathFound when the destination is
// unreachable and model.ErrNotFound when either zone is unknown.
func (r *Router) ShortestPath(origin, destination string, m Metric) (Path, error) {
	if origin == destination {
		return Path{}, fmt.Errorf("%w: origin equals destination", model.ErrSameLocation)
	}
	var (
		path Path
		err  error
	)
	r.g.Read(func(v graph.View) {
		path, err = r.dijkstra(v, origin, destination, m)
	})
	if err != nil {
		return Path{}, err
	}
	r.log.Debugw("shortest path", map[string]any{
		"origin": origin, "destination": destination, "metric": m.String(),
		"segments": path.SegmentCount, "cost": path.Cost(),
	})
	return path, nil
}

func (r *Router) dijkstra(v graph.View, origin, destination string, m Metric) (Path, error) {
	src, ok := v.Index(origin)
	if !ok {
		return Path{}, fmt.Errorf("origin zone %s: %w", origin, model.ErrNotFound)
	}
	dst, ok := v.Index(destination)
	if !ok {
		return Path{}, fmt.Errorf("destination zone %s: %w", destination, model.ErrNotFound)
	}

	n := v.NumZones()
	best := make([]label, n)
	for i := range best {
		best[i] = label{cost: math.Inf(1), bottleneck: math.Inf(-1)}
	}
	via := make([]hop, n)
	done := make([]bool, n)
	best[src] = label{cost: 0, bottleneck: math.Inf(1)}
	via[src].prev = -1

	q := &labelQueue{{node: src, label: best[src]}}
	relax := func(u int, rt model.Route, to int, reversed bool) {
		if !rt.Available || done[to] {
			return
		}
		cand := label{
			cost:       best[u].cost + m.weight(rt),
			bottleneck: math.Min(best[u].bottleneck, rt.Capacity),
		}
		if cand.better(best[to]) {
			best[to] = cand
			via[to] = hop{route: rt, prev: u, reversed: reversed}
			heap.Push(q, queueItem{node: to, label: cand})
		}
	}

	for q.Len() > 0 {
		it := heap.Pop(q).(queueItem)
		u := it.node
		if done[u] || it.label != best[u] {
			continue
		}
		done[u] = true
		if u == dst {
			break
		}
		v.Out(u, func(rt model.Route, to int) bool {
			relax(u, rt, to, false)
			return true
		})
		if r.bidirectional {
			v.In(u, func(rt model.Route, from int) bool {
				relax(u, rt, from, true)
				return true
			})
		}
	}
	if !done[dst] {
		return Path{}, fmt.Errorf("%s to %s: %w", origin, destination, model.ErrNoPathFound)
	}

	var segs []Segment
	for at := dst; at != src; at = via[at].prev {
		segs = append(segs, newSegment(via[at].route, via[at].reversed))
	}
	slices.Reverse(segs)
	return buildPath(origin, destination, m, segs), nil
}
