package network

import (
	"fmt"
	"net/http"

	"github.com/kilianp07/relief/api/respond"
	"github.com/kilianp07/relief/core/routing"
)

type segmentView struct {
	routing.Segment
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
}

type pathView struct {
	Origin          string        `json:"origin"`
	OriginName      string        `json:"origin_name"`
	Destination     string        `json:"destination"`
	DestinationName string        `json:"destination_name"`
	Metric          string        `json:"metric"`
	TotalDistanceKM float64       `json:"total_distance_km"`
	TotalTimeHours  float64       `json:"total_time_hours"`
	Capacity        float64       `json:"capacity"`
	SegmentCount    int           `json:"segment_count"`
	Segments        []segmentView `json:"segments"`
}

type optimalResponse struct {
	pathView
	Alternatives []pathView `json:"alternatives,omitempty"`
}

// names resolves zone ids to names. The graph only keeps ids on edges, so the
// join happens here.
func (h *handler) names() func(id string) string {
	byID := make(map[string]string)
	for _, z := range h.svc.Zones() {
		byID[z.ID] = z.Name
	}
	return func(id string) string { return byID[id] }
}

func view(p routing.Path, name func(string) string) pathView {
	v := pathView{
		Origin:          p.Origin,
		OriginName:      name(p.Origin),
		Destination:     p.Destination,
		DestinationName: name(p.Destination),
		Metric:          p.Metric.String(),
		TotalDistanceKM: p.TotalDistanceKM,
		TotalTimeHours:  p.TotalTimeHours,
		Capacity:        p.Capacity,
		SegmentCount:    p.SegmentCount,
		Segments:        make([]segmentView, 0, len(p.Segments)),
	}
	for _, s := range p.Segments {
		v.Segments = append(v.Segments, segmentView{Segment: s, FromName: name(s.From), ToName: name(s.To)})
	}
	return v
}

func (h *handler) optimalRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, dest := q.Get("origin"), q.Get("destination")
	if origin == "" || dest == "" {
		respond.BadRequest(w, "origin and destination are required")
		return
	}
	k, err := respond.IntQuery(r, "alternatives", 0)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	if k < 0 || k > MaxAlternatives {
		respond.BadRequest(w, fmt.Sprintf("alternatives must be between 0 and %d", MaxAlternatives))
		return
	}
	metric := q.Get("metric")

	best, err := h.svc.ShortestPath(origin, dest, metric)
	if err != nil {
		respond.Error(w, err)
		return
	}
	name := h.names()
	resp := optimalResponse{pathView: view(best, name)}
	if k > 0 {
		// Yen returns the best path first; skip it.
		paths, err := h.svc.Alternatives(origin, dest, metric, int(k)+1)
		if err != nil {
			respond.Error(w, err)
			return
		}
		for i, p := range paths {
			if i == 0 {
				continue
			}
			resp.Alternatives = append(resp.Alternatives, view(p, name))
		}
	}
	respond.JSON(w, http.StatusOK, resp)
}
