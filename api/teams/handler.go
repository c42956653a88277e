// Package teams exposes response team management over HTTP.
package teams

import (
	"context"
	"net/http"

	"github.com/kilianp07/relief/api/respond"
	"github.com/kilianp07/relief/core/model"
)

// Service is the part of the coordinator used by the handlers.
type Service interface {
	CreateTeam(ctx context.Context, t model.Team) (model.Team, error)
	AssignTeam(ctx context.Context, teamID, zoneID string) (model.Team, model.Zone, error)
	ReleaseTeam(ctx context.Context, teamID string) (model.Team, error)
	Team(id string) (model.Team, error)
	Teams() []model.Team
}

// Register mounts the team endpoints on mux.
func Register(mux *http.ServeMux, svc Service) {
	h := &handler{svc: svc}
	mux.HandleFunc("POST /api/teams", h.create)
	mux.HandleFunc("GET /api/teams", h.list)
	mux.HandleFunc("GET /api/teams/{id}", h.get)
	mux.HandleFunc("POST /api/teams/{id}/assign", h.assign)
	mux.HandleFunc("POST /api/teams/{id}/release", h.release)
}

type handler struct {
	svc Service
}

type createRequest struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Members     int      `json:"members"`
	Specialties []string `json:"specialties"`
}

type assignRequest struct {
	ZoneID string `json:"zone_id"`
}

type assignResponse struct {
	Team model.Team `json:"team"`
	Zone model.Zone `json:"zone"`
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTeam(r.Context(), model.Team{
		Name:        req.Name,
		Type:        model.TeamType(req.Type),
		Members:     req.Members,
		Specialties: req.Specialties,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, t)
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	all := h.svc.Teams()
	if r.URL.Query().Get("available") != "true" {
		respond.JSON(w, http.StatusOK, all)
		return
	}
	out := make([]model.Team, 0, len(all))
	for _, t := range all {
		if t.Available {
			out = append(out, t)
		}
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Team(r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

func (h *handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if req.ZoneID == "" {
		respond.BadRequest(w, "zone_id is required")
		return
	}
	t, z, err := h.svc.AssignTeam(r.Context(), r.PathValue("id"), req.ZoneID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, assignResponse{Team: t, Zone: z})
}

func (h *handler) release(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.ReleaseTeam(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}
