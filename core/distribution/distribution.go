// Package distribution plans how a stock of one resource kind is shared among
// zones in need. The plan maximises the risk weighted quantity delivered with
// a linear program and falls back to a greedy split when the solver fails.
package distribution

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/model"
)

// Solver names the method that produced a plan.
type Solver string

const (
	SolverLP     Solver = "lp"
	SolverGreedy Solver = "greedy"
)

// Zones looks up zones.
type Zones interface {
	Zone(id string) (model.Zone, error)
}

// Stock reads ledger levels.
type Stock interface {
	Quantity(ctx context.Context, key string, kind model.ResourceKind) (int64, error)
}

// Request asks for a distribution plan.
type Request struct {
	Source    string   `json:"source"`
	Kind      string   `json:"kind"`
	Zones     []string `json:"zones"`
	PerPerson int64    `json:"per_person"`
	Apply     bool     `json:"apply"`
}

// Allocation is the share planned for one zone.
type Allocation struct {
	ZoneID   string  `json:"zone_id"`
	Name     string  `json:"name"`
	Deficit  int64   `json:"deficit"`
	Weight   float64 `json:"weight"`
	Quantity int64   `json:"quantity"`
}

// Plan is the outcome of a distribution request.
type Plan struct {
	Source      string             `json:"source"`
	Kind        model.ResourceKind `json:"kind"`
	Available   int64              `json:"available"`
	Allocations []Allocation       `json:"allocations"`
	Total       int64              `json:"total"`
	Solver      Solver             `json:"solver"`
	Applied     bool               `json:"applied"`
}

// Planner computes distribution plans against live zones and stock.
type Planner struct {
	zones Zones
	stock Stock
	log   logger.Logger
}

// New creates a Planner.
func New(zones Zones, stock Stock, log logger.Logger) *Planner {
	return &Planner{zones: zones, stock: stock, log: logger.OrNop(log)}
}

// Plan computes how to split the source stock among the requested zones. The
// source itself is never a recipient. Quantities are rounded down.
func (p *Planner) Plan(ctx context.Context, req Request) (Plan, error) {
	kind, err := model.ParseKind(req.Kind)
	if err != nil {
		return Plan{}, err
	}
	if req.PerPerson <= 0 {
		return Plan{}, fmt.Errorf("%w: per person %d", model.ErrInvalidQuantity, req.PerPerson)
	}
	if req.Source == "" {
		return Plan{}, fmt.Errorf("%w: source is required", model.ErrInvalidQuantity)
	}
	if len(req.Zones) == 0 {
		return Plan{}, fmt.Errorf("%w: no zones given", model.ErrInvalidZone)
	}
	available, err := p.stock.Quantity(ctx, req.Source, kind)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Source: req.Source, Kind: kind, Available: available, Solver: SolverLP}
	seen := map[string]bool{req.Source: true}
	for _, id := range req.Zones {
		if seen[id] {
			continue
		}
		seen[id] = true
		z, err := p.zones.Zone(id)
		if err != nil {
			return Plan{}, err
		}
		have, err := p.stock.Quantity(ctx, id, kind)
		if err != nil {
			return Plan{}, err
		}
		plan.Allocations = append(plan.Allocations, Allocation{
			ZoneID:  z.ID,
			Name:    z.Name,
			Deficit: max(0, int64(z.Population)*req.PerPerson-have),
			Weight:  1 + float64(z.Risk)/100,
		})
	}

	allocate(&plan, p.log)
	p.log.Infow("distribution planned", map[string]any{
		"source": req.Source, "kind": string(kind), "available": available,
		"zones": len(plan.Allocations), "total": plan.Total, "solver": string(plan.Solver),
	})
	return plan, nil
}

func allocate(plan *Plan, log logger.Logger) {
	var (
		idx     []int
		weights []float64
		caps    []float64
	)
	for i, a := range plan.Allocations {
		if a.Deficit > 0 {
			idx = append(idx, i)
			weights = append(weights, a.Weight)
			caps = append(caps, float64(a.Deficit))
		}
	}
	if len(idx) == 0 || plan.Available <= 0 {
		return
	}

	sol, err := lpSolve(weights, caps, float64(plan.Available))
	if err != nil {
		log.Warnf("distribution lp failed, using greedy split: %v", err)
		plan.Solver = SolverGreedy
		sol = greedy(weights, caps, float64(plan.Available))
	}
	remaining := plan.Available
	for j, i := range idx {
		q := int64(math.Floor(sol[j] + 1e-6))
		q = min(max(q, 0), plan.Allocations[i].Deficit, remaining)
		plan.Allocations[i].Quantity = q
		plan.Total += q
		remaining -= q
	}
}

// solveLP maximises weightsᵀx subject to 0 ≤ x ≤ caps and Σx ≤ available.
func solveLP(weights, caps []float64, available float64) ([]float64, error) {
	n := len(weights)
	c := make([]float64, n)
	for i, w := range weights {
		c[i] = -w
	}

	g := mat.NewDense(2*n+1, n, nil)
	h := make([]float64, 2*n+1)
	for i, cp := range caps {
		g.Set(i, i, 1)
		h[i] = cp
		g.Set(n+i, i, -1)
		g.Set(2*n, i, 1)
	}
	h[2*n] = available

	cStd, aStd, bStd := lp.Convert(c, g, h, nil, nil)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, 1e-7, nil)
	if err != nil {
		return nil, err
	}
	// Convert splits x into positive and negative parts.
	x := make([]float64, n)
	for i := range x {
		x[i] = sol[i] - sol[n+i]
	}
	return x, nil
}

// lpSolve can be replaced in tests to simulate solver failures.
var lpSolve = solveLP

// greedy serves the heaviest weights first, ties by input order.
func greedy(weights, caps []float64, available float64) []float64 {
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(weights[b], weights[a]) })
	out := make([]float64, len(weights))
	for _, i := range order {
		q := math.Min(caps[i], available)
		out[i] = q
		available -= q
	}
	return out
}
