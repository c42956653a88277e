// Package network exposes zones, routes and route queries over HTTP.
package network

import (
	"context"
	"net/http"

	"github.com/kilianp07/relief/api/respond"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/routing"
)

// MaxAlternatives caps the alternatives query parameter.
const MaxAlternatives = 10

// Service is the part of the coordinator used by the handlers.
type Service interface {
	AddZone(ctx context.Context, z model.Zone) (model.Zone, error)
	UpdateZone(ctx context.Context, id string, u model.ZoneUpdate) (model.Zone, error)
	DeleteZone(ctx context.Context, id string) error
	Zone(id string) (model.Zone, error)
	Zones() []model.Zone
	AddRoute(ctx context.Context, r model.Route) (model.Route, error)
	UpdateRoute(ctx context.Context, id string, u model.RouteUpdate) (model.Route, error)
	SetRouteAvailability(ctx context.Context, id string, available bool) (model.Route, error)
	DeleteRoute(ctx context.Context, id string) error
	Route(id string) (model.Route, error)
	Routes() []model.Route
	ShortestPath(origin, destination, metric string) (routing.Path, error)
	Alternatives(origin, destination, metric string, k int) ([]routing.Path, error)
}

// Register mounts the zone, route and optimal-route endpoints on mux.
func Register(mux *http.ServeMux, svc Service) {
	h := &handler{svc: svc}
	mux.HandleFunc("POST /api/zones", h.createZone)
	mux.HandleFunc("GET /api/zones", h.listZones)
	mux.HandleFunc("GET /api/zones/{id}", h.getZone)
	mux.HandleFunc("PUT /api/zones/{id}", h.updateZone)
	mux.HandleFunc("DELETE /api/zones/{id}", h.deleteZone)
	mux.HandleFunc("POST /api/routes", h.createRoute)
	mux.HandleFunc("GET /api/routes", h.listRoutes)
	mux.HandleFunc("GET /api/routes/{id}", h.getRoute)
	mux.HandleFunc("PUT /api/routes/{id}", h.updateRoute)
	mux.HandleFunc("DELETE /api/routes/{id}", h.deleteRoute)
	mux.HandleFunc("PUT /api/routes/{id}/availability", h.setAvailability)
	mux.HandleFunc("GET /api/optimal-route", h.optimalRoute)
}

type handler struct {
	svc Service
}

type zoneRequest struct {
	Name       string          `json:"name"`
	Type       model.ZoneType  `json:"type"`
	Population int             `json:"population"`
	Risk       int             `json:"risk"`
	Position   *model.Position `json:"position"`
}

func (h *handler) createZone(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	z, err := h.svc.AddZone(r.Context(), model.Zone{
		Name:       req.Name,
		Type:       req.Type,
		Population: req.Population,
		Risk:       req.Risk,
		Position:   req.Position,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, z)
}

func (h *handler) listZones(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.Zones())
}

func (h *handler) getZone(w http.ResponseWriter, r *http.Request) {
	z, err := h.svc.Zone(r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, z)
}

func (h *handler) updateZone(w http.ResponseWriter, r *http.Request) {
	var u model.ZoneUpdate
	if !respond.Decode(w, r, &u) {
		return
	}
	z, err := h.svc.UpdateZone(r.Context(), r.PathValue("id"), u)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, z)
}

func (h *handler) deleteZone(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteZone(r.Context(), r.PathValue("id")); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type routeRequest struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	DistanceKM  float64 `json:"distance_km"`
	TimeHours   float64 `json:"time_hours"`
	Capacity    float64 `json:"capacity"`
	Available   *bool   `json:"available"`
}

func (h *handler) createRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	rt := model.Route{
		Origin:      req.Origin,
		Destination: req.Destination,
		DistanceKM:  req.DistanceKM,
		TimeHours:   req.TimeHours,
		Capacity:    req.Capacity,
		Available:   true,
	}
	if req.Available != nil {
		rt.Available = *req.Available
	}
	created, err := h.svc.AddRoute(r.Context(), rt)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

func (h *handler) listRoutes(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.Routes())
}

func (h *handler) getRoute(w http.ResponseWriter, r *http.Request) {
	rt, err := h.svc.Route(r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rt)
}

func (h *handler) updateRoute(w http.ResponseWriter, r *http.Request) {
	var u model.RouteUpdate
	if !respond.Decode(w, r, &u) {
		return
	}
	rt, err := h.svc.UpdateRoute(r.Context(), r.PathValue("id"), u)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rt)
}

func (h *handler) deleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRoute(r.Context(), r.PathValue("id")); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

func (h *handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if req.Available == nil {
		respond.BadRequest(w, "available is required")
		return
	}
	rt, err := h.svc.SetRouteAvailability(r.Context(), r.PathValue("id"), *req.Available)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rt)
}
