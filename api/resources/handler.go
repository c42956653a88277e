// Package resources exposes the resource ledger over HTTP.
package resources

import (
	"context"
	"net/http"

	"github.com/kilianp07/relief/api/respond"
	"github.com/kilianp07/relief/core/distribution"
	"github.com/kilianp07/relief/core/model"
)

// Service is the part of the coordinator used by the handlers.
type Service interface {
	AddStock(ctx context.Context, key string, kind model.ResourceKind, qty int64) (int64, error)
	Transfer(ctx context.Context, src, dst string, kind model.ResourceKind, qty int64) (model.Transfer, error)
	Balance(ctx context.Context, key string) (map[model.ResourceKind]int64, error)
	Stocks() []model.StockEntry
	Deficit(ctx context.Context, key string, kind model.ResourceKind, population, perPerson int64) (int64, error)
	Distribute(ctx context.Context, req distribution.Request) (distribution.Plan, []model.Transfer, error)
}

// Register mounts the resource endpoints on mux.
func Register(mux *http.ServeMux, svc Service) {
	h := &handler{svc: svc}
	mux.HandleFunc("GET /api/resources", h.list)
	mux.HandleFunc("GET /api/resources/{key}", h.balance)
	mux.HandleFunc("POST /api/resources/{key}/add", h.add)
	mux.HandleFunc("GET /api/resources/{key}/deficit", h.deficit)
	mux.HandleFunc("POST /api/resources/transfer", h.transfer)
	mux.HandleFunc("POST /api/resources/distribution", h.distribute)
}

type handler struct {
	svc Service
}

type addRequest struct {
	Kind     string `json:"kind"`
	Quantity int64  `json:"quantity"`
}

type addResponse struct {
	Key      string             `json:"key"`
	Kind     model.ResourceKind `json:"kind"`
	Quantity int64              `json:"quantity"`
}

type balanceResponse struct {
	Key   string                       `json:"key"`
	Stock map[model.ResourceKind]int64 `json:"stock"`
}

type transferRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Kind        string `json:"kind"`
	Quantity    int64  `json:"quantity"`
}

type deficitResponse struct {
	Key        string             `json:"key"`
	Kind       model.ResourceKind `json:"kind,omitempty"`
	Population int64              `json:"population"`
	PerPerson  int64              `json:"per_person"`
	Deficit    int64              `json:"deficit"`
}

type distributionResponse struct {
	Plan      distribution.Plan `json:"plan"`
	Transfers []model.Transfer  `json:"transfers,omitempty"`
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	entries := h.svc.Stocks()
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		respond.JSON(w, http.StatusOK, entries)
		return
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]model.StockEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	b, err := h.svc.Balance(r.Context(), key)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, balanceResponse{Key: key, Stock: b})
}

func (h *handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	kind, err := model.ParseKind(req.Kind)
	if err != nil {
		respond.Error(w, err)
		return
	}
	key := r.PathValue("key")
	level, err := h.svc.AddStock(r.Context(), key, kind, req.Quantity)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, addResponse{Key: key, Kind: kind, Quantity: level})
}

func (h *handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	kind, err := model.ParseKind(req.Kind)
	if err != nil {
		respond.Error(w, err)
		return
	}
	t, err := h.svc.Transfer(r.Context(), req.Source, req.Destination, kind, req.Quantity)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

func (h *handler) deficit(w http.ResponseWriter, r *http.Request) {
	pop, err := respond.IntQuery(r, "population", -1)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	if pop < 0 {
		respond.BadRequest(w, "population is required")
		return
	}
	per, err := respond.IntQuery(r, "per_person", 1)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	var kind model.ResourceKind
	if s := r.URL.Query().Get("kind"); s != "" {
		if kind, err = model.ParseKind(s); err != nil {
			respond.Error(w, err)
			return
		}
	}
	key := r.PathValue("key")
	d, err := h.svc.Deficit(r.Context(), key, kind, pop, per)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, deficitResponse{Key: key, Kind: kind, Population: pop, PerPerson: per, Deficit: d})
}

func (h *handler) distribute(w http.ResponseWriter, r *http.Request) {
	var req distribution.Request
	if !respond.Decode(w, r, &req) {
		return
	}
	plan, transfers, err := h.svc.Distribute(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, distributionResponse{Plan: plan, Transfers: transfers})
}
