package routing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/relief/core/graph"
	"github.com/kilianp07/relief/core/model"
)

type edgeKey struct{ from, to int64 }

type edgeChoice struct {
	route    model.Route
	reversed bool
}

// Alternatives returns up to k loopless paths in non-decreasing cost order.
// The first entry is always the ShortestPath result; the rest come from Yen's
// algorithm over the available routes. Between two zones linked by several
// routes only the cheapest one (widest on ties) is considered.
func (r *Router) Alternatives(origin, destination string, m Metric, k int) ([]Path, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", model.ErrInvalidQuantity, k)
	}
	k = min(k, r.maxAlt)
	if origin == destination {
		return nil, fmt.Errorf("%w: origin equals destination", model.ErrSameLocation)
	}

	var (
		first  Path
		err    error
		wg     *simple.WeightedDirectedGraph
		chosen map[edgeKey]edgeChoice
		src    int
		dst    int
	)
	r.g.Read(func(v graph.View) {
		first, err = r.dijkstra(v, origin, destination, m)
		if err != nil || k == 1 {
			return
		}
		src, _ = v.Index(origin)
		dst, _ = v.Index(destination)
		wg, chosen = r.weightedSnapshot(v, m)
	})
	if err != nil {
		return nil, err
	}
	out := []Path{first}
	if k == 1 {
		return out, nil
	}

	seen := map[string]bool{routeSignature(first.Segments): true}
	for _, nodes := range path.YenKShortestPaths(wg, k, math.Inf(1), simple.Node(src), simple.Node(dst)) {
		segs := make([]Segment, 0, len(nodes)-1)
		for i := 1; i < len(nodes); i++ {
			c := chosen[edgeKey{nodes[i-1].ID(), nodes[i].ID()}]
			segs = append(segs, newSegment(c.route, c.reversed))
		}
		sig := routeSignature(segs)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, buildPath(origin, destination, m, segs))
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (r *Router) weightedSnapshot(v graph.View, m Metric) (*simple.WeightedDirectedGraph, map[edgeKey]edgeChoice) {
	wg := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for i := 0; i < v.NumZones(); i++ {
		wg.AddNode(simple.Node(i))
	}
	chosen := make(map[edgeKey]edgeChoice)
	consider := func(from, to int, rt model.Route, reversed bool) {
		if !rt.Available {
			return
		}
		key := edgeKey{int64(from), int64(to)}
		if cur, ok := chosen[key]; ok {
			cw, nw := m.weight(cur.route), m.weight(rt)
			if nw > cw+costEpsilon || (math.Abs(nw-cw) <= costEpsilon && rt.Capacity <= cur.route.Capacity) {
				return
			}
		}
		chosen[key] = edgeChoice{route: rt, reversed: reversed}
	}
	for i := 0; i < v.NumZones(); i++ {
		v.Out(i, func(rt model.Route, to int) bool {
			consider(i, to, rt, false)
			if r.bidirectional {
				consider(to, i, rt, true)
			}
			return true
		})
	}
	for key, c := range chosen {
		wg.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(key.from),
			T: simple.Node(key.to),
			W: m.weight(c.route),
		})
	}
	return wg, chosen
}

func routeSignature(segs []Segment) string {
	var sig string
	for _, s := range segs {
		sig += s.RouteID + ">"
	}
	return sig
}
