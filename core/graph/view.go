package graph

import "github.com/kilianp07/relief/core/model"

// View is a read-only, index based window on the graph. It is only valid
// inside the callback passed to Read, which holds the read lock.
type View struct {
	g *Graph
}

// Read runs fn with a consistent view of the graph.
func (g *Graph) Read(fn func(View)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(View{g: g})
}

// NumZones is the size of the zone arena. Valid indices are [0, NumZones).
func (v View) NumZones() int { return len(v.g.zones) }

// Index resolves a zone id to its arena index.
func (v View) Index(zoneID string) (int, bool) {
	i, ok := v.g.zoneIdx[zoneID]
	return i, ok
}

// Zone returns the zone stored at index i.
func (v View) Zone(i int) model.Zone { return v.g.zones[i] }

// Out calls fn for every route leaving zone i until fn returns false.
func (v View) Out(i int, fn func(r model.Route, to int) bool) {
	for _, ri := range v.g.out[i] {
		s := v.g.routes[ri]
		if !fn(s.route, s.to) {
			return
		}
	}
}

// In calls fn for every route entering zone i until fn returns false.
func (v View) In(i int, fn func(r model.Route, from int) bool) {
	for _, ri := range v.g.in[i] {
		s := v.g.routes[ri]
		if !fn(s.route, s.from) {
			return
		}
	}
}
