// Package export renders relief datasets as CSV, JSON or an HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/relief/core/model"
)

// Dataset names an exportable collection.
type Dataset string

const (
	Zones       Dataset = "zones"
	Routes      Dataset = "routes"
	Evacuations Dataset = "evacuations"
	Stocks      Dataset = "stocks"
)

// ParseDataset validates a dataset name.
func ParseDataset(s string) (Dataset, error) {
	switch d := Dataset(strings.ToLower(s)); d {
	case Zones, Routes, Evacuations, Stocks:
		return d, nil
	}
	return "", fmt.Errorf("unknown dataset %q", s)
}

// Format is an output encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	HTML Format = "html"
)

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", JSON:
		return JSON, nil
	case CSV, HTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Table is a dataset flattened to rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// WriteJSON writes v to w in JSON format.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes the table with its header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// ZoneTable flattens zones.
func ZoneTable(zones []model.Zone) Table {
	t := Table{Header: []string{"id", "name", "type", "population", "initial_population", "risk", "evacuated", "lat", "lng", "teams"}}
	for _, z := range zones {
		lat, lng := "", ""
		if z.Position != nil {
			lat, lng = ftoa(z.Position.Lat), ftoa(z.Position.Lng)
		}
		t.Rows = append(t.Rows, []string{
			z.ID, z.Name, string(z.Type),
			strconv.Itoa(z.Population), strconv.Itoa(z.InitialPopulation), strconv.Itoa(z.Risk),
			strconv.FormatBool(z.Evacuated), lat, lng, strings.Join(z.Teams, ";"),
		})
	}
	return t
}

// RouteTable flattens routes.
func RouteTable(routes []model.Route) Table {
	t := Table{Header: []string{"id", "origin", "destination", "distance_km", "time_hours", "capacity", "available"}}
	for _, r := range routes {
		t.Rows = append(t.Rows, []string{
			r.ID, r.Origin, r.Destination, ftoa(r.DistanceKM), ftoa(r.TimeHours), ftoa(r.Capacity),
			strconv.FormatBool(r.Available),
		})
	}
	return t
}

// EvacuationTable flattens evacuation requests.
func EvacuationTable(reqs []model.EvacuationRequest) Table {
	t := Table{Header: []string{"id", "zone_id", "persons", "priority", "state", "created_at", "started_at", "completed_at"}}
	for _, r := range reqs {
		t.Rows = append(t.Rows, []string{
			r.ID, r.ZoneID, strconv.Itoa(r.Persons), strconv.Itoa(r.Priority), r.State.String(),
			r.CreatedAt.Format(time.RFC3339), timeOrEmpty(r.StartedAt), timeOrEmpty(r.CompletedAt),
		})
	}
	return t
}

// StockTable flattens ledger entries.
func StockTable(entries []model.StockEntry) Table {
	t := Table{Header: []string{"location", "kind", "quantity"}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{e.Key, string(e.Kind), strconv.FormatInt(e.Quantity, 10)})
	}
	return t
}

// Write encodes data, which must match the dataset, in the given format.
func Write(w io.Writer, d Dataset, f Format, data any) error {
	switch f {
	case JSON:
		return WriteJSON(w, data)
	case HTML:
		return WriteChart(w, d, data)
	}
	var t Table
	switch v := data.(type) {
	case []model.Zone:
		t = ZoneTable(v)
	case []model.Route:
		t = RouteTable(v)
	case []model.EvacuationRequest:
		t = EvacuationTable(v)
	case []model.StockEntry:
		t = StockTable(v)
	default:
		return fmt.Errorf("dataset %s: unsupported data %T", d, data)
	}
	return WriteCSV(w, t)
}
