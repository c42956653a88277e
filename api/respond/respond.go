// Package respond writes JSON bodies and maps domain errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/routing"
	"github.com/kilianp07/relief/core/simulation"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidParameter   = "invalid_parameter"
	codeUnauthorized       = "unauthorized"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrNotFound, http.StatusNotFound, "not_found"},
	{model.ErrNoPathFound, http.StatusNotFound, "no_path_found"},
	{model.ErrInvalidEdge, http.StatusBadRequest, "invalid_edge"},
	{model.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{model.ErrSameLocation, http.StatusBadRequest, "same_location"},
	{model.ErrInvalidZone, http.StatusBadRequest, "invalid_zone"},
	{model.ErrInvalidTeam, http.StatusBadRequest, "invalid_team"},
	{model.ErrUnknownResourceKind, http.StatusBadRequest, "unknown_resource_kind"},
	{routing.ErrUnknownMetric, http.StatusBadRequest, "unknown_metric"},
	{simulation.ErrUnknownDisaster, http.StatusBadRequest, "unknown_disaster"},
	{model.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{model.ErrAlreadyCompleted, http.StatusConflict, "already_completed"},
	{model.ErrTeamUnavailable, http.StatusConflict, "team_unavailable"},
	{model.ErrLockTimeout, http.StatusServiceUnavailable, "lock_timeout"},
	{model.ErrNotImplemented, http.StatusNotImplemented, "not_implemented"},
}

// Status returns the HTTP status and error code for err.
func Status(err error) (int, string) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, codeInternalError
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; nothing left to report to the client.
		return
	}
}

// Error writes err as {"error","code"} with its mapped status. Internal
// errors hide their message.
func Error(w http.ResponseWriter, err error) {
	status, code := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	write(w, status, code, msg)
}

// BadRequest writes a 400 for malformed input.
func BadRequest(w http.ResponseWriter, msg string) {
	write(w, http.StatusBadRequest, codeInvalidParameter, msg)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter) {
	write(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
}

func write(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, err := json.Marshal(errorResponse{Error: msg, Code: code})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// Decode reads a JSON body into v, rejecting unknown fields. It writes the
// 400 itself and returns false on failure.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		write(w, http.StatusBadRequest, codeInvalidRequestBody, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// IntQuery parses an optional integer query parameter.
func IntQuery(r *http.Request, name string, def int64) (int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
