// Package journal keeps an append-only record of every successful mutation
// of the relief state.
package journal

import (
	"context"
	"time"
)

// Record captures one mutation.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Operation string         `json:"operation"`
	Subject   string         `json:"subject"`
	Details   map[string]any `json:"details,omitempty"`
}

// Query defines filters for retrieving records. Zero values match anything.
type Query struct {
	Start     time.Time
	End       time.Time
	Operation string
	Subject   string
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Operation != "" && r.Operation != q.Operation {
		return false
	}
	return q.Subject == "" || r.Subject == q.Subject
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Discard drops every record.
type Discard struct{}

func (Discard) Append(context.Context, Record) error           { return nil }
func (Discard) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (Discard) Close() error                                   { return nil }
