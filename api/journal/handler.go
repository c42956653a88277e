// Package journal exposes the operation journal over HTTP.
package journal

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/relief/api/respond"
	corejournal "github.com/kilianp07/relief/core/journal"
)

// Querier reads journal records.
type Querier interface {
	Query(ctx context.Context, q corejournal.Query) ([]corejournal.Record, error)
}

// NewHandler returns an HTTP handler serving GET /api/journal. Requests must
// carry "Authorization: Bearer <token>" when token is non-empty.
func NewHandler(store Querier, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			want := []byte("Bearer " + token)
			if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
				respond.Unauthorized(w)
				return
			}
		}
		q, err := parseQuery(r)
		if err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			respond.Error(w, err)
			return
		}
		if records == nil {
			records = []corejournal.Record{}
		}
		respond.JSON(w, http.StatusOK, records)
	})
}

func parseQuery(r *http.Request) (corejournal.Query, error) {
	v := r.URL.Query()
	q := corejournal.Query{Operation: v.Get("operation"), Subject: v.Get("subject")}
	var err error
	if q.Start, err = parseTime(v.Get("start")); err != nil {
		return q, fmt.Errorf("start: %w", err)
	}
	if q.End, err = parseTime(v.Get("end")); err != nil {
		return q, fmt.Errorf("end: %w", err)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, fmt.Errorf("end is before start")
	}
	return q, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// QueryFunc adapts a function to Querier.
type QueryFunc func(ctx context.Context, q corejournal.Query) ([]corejournal.Record, error)

// Query calls f.
func (f QueryFunc) Query(ctx context.Context, q corejournal.Query) ([]corejournal.Record, error) {
	return f(ctx, q)
}
