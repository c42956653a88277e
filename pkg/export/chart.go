package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/relief/core/model"
)

// WriteChart renders data as a self-contained HTML bar chart.
func WriteChart(w io.Writer, d Dataset, data any) error {
	var bar *charts.Bar
	switch v := data.(type) {
	case []model.Zone:
		bar = zoneChart(v)
	case []model.Route:
		bar = routeChart(v)
	case []model.EvacuationRequest:
		bar = evacuationChart(v)
	case []model.StockEntry:
		bar = stockChart(v)
	default:
		return fmt.Errorf("dataset %s: unsupported data %T", d, data)
	}
	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render %s chart: %w", d, err)
	}
	return nil
}

func newBar(title, yName string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
		charts.WithLegendOpts(opts.Legend{}),
		charts.WithTooltipOpts(opts.Tooltip{}),
	)
	return bar
}

func zoneChart(zones []model.Zone) *charts.Bar {
	bar := newBar("Zones", "persons / risk")
	names := make([]string, len(zones))
	pop := make([]opts.BarData, len(zones))
	risk := make([]opts.BarData, len(zones))
	for i, z := range zones {
		names[i] = z.Name
		pop[i] = opts.BarData{Value: z.Population}
		risk[i] = opts.BarData{Value: z.Risk}
	}
	bar.SetXAxis(names).AddSeries("population", pop).AddSeries("risk", risk)
	return bar
}

func routeChart(routes []model.Route) *charts.Bar {
	bar := newBar("Routes", "km")
	ids := make([]string, len(routes))
	dist := make([]opts.BarData, len(routes))
	for i, r := range routes {
		ids[i] = r.ID
		dist[i] = opts.BarData{Value: r.DistanceKM}
	}
	bar.SetXAxis(ids).AddSeries("distance", dist)
	return bar
}

func evacuationChart(reqs []model.EvacuationRequest) *charts.Bar {
	bar := newBar("Evacuations", "persons")
	ids := make([]string, len(reqs))
	persons := make([]opts.BarData, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
		persons[i] = opts.BarData{Value: r.Persons, Name: r.State.String()}
	}
	bar.SetXAxis(ids).AddSeries("persons", persons)
	return bar
}

// stockChart draws one series per resource kind over the sorted locations.
func stockChart(entries []model.StockEntry) *charts.Bar {
	bar := newBar("Stock", "units")
	byKind := make(map[model.ResourceKind]map[string]int64)
	locSet := make(map[string]struct{})
	for _, e := range entries {
		if byKind[e.Kind] == nil {
			byKind[e.Kind] = make(map[string]int64)
		}
		byKind[e.Kind][e.Key] += e.Quantity
		locSet[e.Key] = struct{}{}
	}
	locs := make([]string, 0, len(locSet))
	for l := range locSet {
		locs = append(locs, l)
	}
	sort.Strings(locs)
	bar.SetXAxis(locs)

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		qty := byKind[model.ResourceKind(k)]
		series := make([]opts.BarData, len(locs))
		for i, l := range locs {
			series[i] = opts.BarData{Value: qty[l]}
		}
		bar.AddSeries(k, series)
	}
	return bar
}
