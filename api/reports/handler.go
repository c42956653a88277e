// Package reports serves read-only views: the summary, dataset exports and
// operator notifications.
package reports

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/kilianp07/relief/api/respond"
	"github.com/kilianp07/relief/core/coordinator"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/pkg/export"
)

// Service is the part of the coordinator used by the handlers.
type Service interface {
	Summary(ctx context.Context, criticalRisk int) (coordinator.Summary, error)
	Zones() []model.Zone
	Routes() []model.Route
	Stocks() []model.StockEntry
	Evacuations(ctx context.Context) ([]model.EvacuationRequest, error)
}

// Notifications is the operator notification feed.
type Notifications interface {
	List(unreadOnly bool, limit int) []model.Notification
	MarkRead(id string) (model.Notification, error)
	Unread() int
}

// Register mounts the report and notification endpoints on mux. Zones at or
// above criticalRisk count as critical in the summary.
func Register(mux *http.ServeMux, svc Service, notes Notifications, criticalRisk int) {
	h := &handler{svc: svc, notes: notes, criticalRisk: criticalRisk}
	mux.HandleFunc("GET /api/reports/summary", h.summary)
	mux.HandleFunc("GET /api/reports/{dataset}", h.dataset)
	mux.HandleFunc("GET /api/notifications", h.notifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.markRead)
}

type handler struct {
	svc          Service
	notes        Notifications
	criticalRisk int
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context(), h.criticalRisk)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, s)
}

func (h *handler) dataset(w http.ResponseWriter, r *http.Request) {
	d, err := export.ParseDataset(r.PathValue("dataset"))
	if err != nil {
		respond.Error(w, fmt.Errorf("%w: %v", model.ErrNotFound, err))
		return
	}
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	var data any
	switch d {
	case export.Zones:
		data = h.svc.Zones()
	case export.Routes:
		data = h.svc.Routes()
	case export.Stocks:
		data = h.svc.Stocks()
	case export.Evacuations:
		if data, err = h.svc.Evacuations(r.Context()); err != nil {
			respond.Error(w, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, d, f, data); err != nil {
		respond.Error(w, err)
		return
	}
	switch f {
	case export.CSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(d)+".csv"))
	case export.HTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type notificationsResponse struct {
	Unread        int                  `json:"unread"`
	Notifications []model.Notification `json:"notifications"`
}

func (h *handler) notifications(w http.ResponseWriter, r *http.Request) {
	limit, err := respond.IntQuery(r, "limit", 0)
	if err != nil || limit < 0 {
		respond.BadRequest(w, "limit must be a non-negative integer")
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	respond.JSON(w, http.StatusOK, notificationsResponse{
		Unread:        h.notes.Unread(),
		Notifications: h.notes.List(unreadOnly, int(limit)),
	})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.MarkRead(r.PathValue("id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, n)
}
