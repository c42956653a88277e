package model

import (
	"fmt"
	"time"
)

// EvacuationState is the lifecycle state of an evacuation request.
type EvacuationState int

const (
	EvacuationPending EvacuationState = iota
	EvacuationInProgress
	EvacuationCompleted
)

// String returns the report-facing name of the state.
func (s EvacuationState) String() string {
	switch s {
	case EvacuationPending:
		return "PENDING"
	case EvacuationInProgress:
		return "IN_PROGRESS"
	case EvacuationCompleted:
		return "COMPLETED"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s EvacuationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *EvacuationState) UnmarshalText(b []byte) error {
	v, err := ParseEvacuationState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseEvacuationState resolves a state name.
func ParseEvacuationState(name string) (EvacuationState, error) {
	switch name {
	case "PENDING":
		return EvacuationPending, nil
	case "IN_PROGRESS":
		return EvacuationInProgress, nil
	case "COMPLETED":
		return EvacuationCompleted, nil
	default:
		return 0, fmt.Errorf("unknown evacuation state %q", name)
	}
}

// EvacuationRequest is a unit of work moving persons out of a zone.
// Priority and the zone figures it was computed from are frozen at submission.
type EvacuationRequest struct {
	ID          string          `json:"id"`
	ZoneID      string          `json:"zone_id"`
	Persons     int             `json:"persons"`
	Priority    int             `json:"priority"`
	State       EvacuationState `json:"state"`
	Seq         uint64          `json:"seq"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
