package model

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidEdge         = errors.New("invalid edge")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrSameLocation        = errors.New("same location")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrNoPathFound         = errors.New("no path found")
	ErrAlreadyCompleted    = errors.New("already completed")
	ErrInvalidZone         = errors.New("invalid zone")
	ErrUnknownResourceKind = errors.New("unknown resource kind")
	ErrTeamUnavailable     = errors.New("team unavailable")
	ErrInvalidTeam         = errors.New("invalid team")
	// ErrLockTimeout is returned when a bounded lock wait expires.
	ErrLockTimeout    = errors.New("lock timeout")
	ErrNotImplemented = errors.New("not implemented")
)
