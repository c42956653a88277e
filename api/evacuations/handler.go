// Package evacuations exposes the evacuation queue and the simulations over
// HTTP.
package evacuations

import (
	"context"
	"net/http"

	"github.com/kilianp07/relief/api/respond"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/simulation"
)

// Service is the part of the coordinator used by the handlers.
type Service interface {
	SubmitEvacuation(ctx context.Context, zoneID string, persons int) (model.EvacuationRequest, error)
	NextEvacuation(ctx context.Context) (model.EvacuationRequest, bool, error)
	StartEvacuation(ctx context.Context, id string) (model.EvacuationRequest, error)
	ProcessEvacuation(ctx context.Context, id string) (model.EvacuationRequest, model.Zone, error)
	Evacuation(ctx context.Context, id string) (model.EvacuationRequest, error)
	Evacuations(ctx context.Context) ([]model.EvacuationRequest, error)
	PlanEvacuation(ctx context.Context, in simulation.PlanInput) (simulation.EvacuationPlan, error)
	SimulateDisaster(ctx context.Context, in simulation.DisasterInput) (simulation.DisasterResult, error)
}

// Register mounts the evacuation and simulation endpoints on mux.
func Register(mux *http.ServeMux, svc Service) {
	h := &handler{svc: svc}
	mux.HandleFunc("POST /api/evacuations", h.submit)
	mux.HandleFunc("GET /api/evacuations", h.list)
	mux.HandleFunc("GET /api/evacuations/next", h.next)
	mux.HandleFunc("GET /api/evacuations/{id}", h.get)
	mux.HandleFunc("POST /api/evacuations/{id}/start", h.start)
	mux.HandleFunc("POST /api/evacuations/{id}/process", h.process)
	mux.HandleFunc("POST /api/evacuations/plan", h.plan)
	mux.HandleFunc("POST /api/simulations/disaster", h.disaster)
}

type handler struct {
	svc Service
}

type submitRequest struct {
	ZoneID  string `json:"zone_id"`
	Persons int    `json:"persons"`
}

type processResponse struct {
	Request model.EvacuationRequest `json:"request"`
	Zone    model.Zone              `json:"zone"`
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	ev, err := h.svc.SubmitEvacuation(r.Context(), req.ZoneID, req.Persons)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, ev)
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		filter   model.EvacuationState
		filtered bool
	)
	if s := r.URL.Query().Get("state"); s != "" {
		st, err := model.ParseEvacuationState(s)
		if err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
		filter, filtered = st, true
	}
	all, err := h.svc.Evacuations(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]model.EvacuationRequest, 0, len(all))
	for _, ev := range all {
		if !filtered || ev.State == filter {
			out = append(out, ev)
		}
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *handler) next(w http.ResponseWriter, r *http.Request) {
	ev, ok, err := h.svc.NextEvacuation(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respond.JSON(w, http.StatusOK, ev)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.Evacuation(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ev)
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.StartEvacuation(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ev)
}

func (h *handler) process(w http.ResponseWriter, r *http.Request) {
	ev, z, err := h.svc.ProcessEvacuation(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, processResponse{Request: ev, Zone: z})
}

func (h *handler) plan(w http.ResponseWriter, r *http.Request) {
	var in simulation.PlanInput
	if !respond.Decode(w, r, &in) {
		return
	}
	p, err := h.svc.PlanEvacuation(r.Context(), in)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *handler) disaster(w http.ResponseWriter, r *http.Request) {
	var in simulation.DisasterInput
	if !respond.Decode(w, r, &in) {
		return
	}
	res, err := h.svc.SimulateDisaster(r.Context(), in)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
