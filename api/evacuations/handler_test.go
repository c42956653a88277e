package evacuations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/coordinator"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/simulation"
)

func setup(t *testing.T) (*coordinator.Coordinator, *http.ServeMux) {
	t.Helper()
	var cfg coordinator.Config
	cfg.SetDefaults()
	c := coordinator.New(cfg, nil)
	t.Cleanup(func() { _ = c.Close() })
	mux := http.NewServeMux()
	Register(mux, c)
	return c, mux
}

func call(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, bytes.NewBufferString(body)))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEvacuationScenario(t *testing.T) {
	c, mux := setup(t)
	ctx := context.Background()
	a, err := c.AddZone(ctx, model.Zone{Name: "A", Population: 1000, Risk: 80})
	require.NoError(t, err)
	b, err := c.AddZone(ctx, model.Zone{Name: "B", Population: 200, Risk: 30})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, call(mux, http.MethodGet, "/api/evacuations/next", "").Code)

	rec := call(mux, http.MethodPost, "/api/evacuations", `{"zone_id":"`+a.ID+`","persons":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reqA := decode[model.EvacuationRequest](t, rec)
	rec = call(mux, http.MethodPost, "/api/evacuations", `{"zone_id":"`+b.ID+`","persons":50}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	reqB := decode[model.EvacuationRequest](t, rec)
	assert.Greater(t, reqA.Priority, reqB.Priority)

	next := decode[model.EvacuationRequest](t, call(mux, http.MethodGet, "/api/evacuations/next", ""))
	assert.Equal(t, reqA.ID, next.ID)

	rec = call(mux, http.MethodPost, "/api/evacuations/"+reqA.ID+"/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"IN_PROGRESS"`)

	rec = call(mux, http.MethodPost, "/api/evacuations/"+reqA.ID+"/process", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[processResponse](t, rec)
	assert.Equal(t, model.EvacuationCompleted, done.Request.State)
	assert.Equal(t, 0, done.Zone.Population)
	assert.True(t, done.Zone.Evacuated)

	rec = call(mux, http.MethodPost, "/api/evacuations/"+reqA.ID+"/process", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_completed")

	next = decode[model.EvacuationRequest](t, call(mux, http.MethodGet, "/api/evacuations/next", ""))
	assert.Equal(t, reqB.ID, next.ID)

	pending := decode[[]model.EvacuationRequest](t, call(mux, http.MethodGet, "/api/evacuations?state=PENDING", ""))
	require.Len(t, pending, 1)
	assert.Equal(t, reqB.ID, pending[0].ID)
	all := decode[[]model.EvacuationRequest](t, call(mux, http.MethodGet, "/api/evacuations", ""))
	assert.Len(t, all, 2)
	assert.Equal(t, http.StatusBadRequest, call(mux, http.MethodGet, "/api/evacuations?state=LOST", "").Code)
}

func TestEvacuationErrors(t *testing.T) {
	c, mux := setup(t)
	z, err := c.AddZone(context.Background(), model.Zone{Name: "A", Population: 10})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, call(mux, http.MethodPost, "/api/evacuations", `{"zone_id":"`+z.ID+`","persons":0}`).Code)
	assert.Equal(t, http.StatusNotFound, call(mux, http.MethodPost, "/api/evacuations", `{"zone_id":"ghost","persons":5}`).Code)
	assert.Equal(t, http.StatusNotFound, call(mux, http.MethodPost, "/api/evacuations/ghost/process", "").Code)
	assert.Equal(t, http.StatusNotFound, call(mux, http.MethodGet, "/api/evacuations/ghost", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(mux, http.MethodPost, "/api/evacuations", `not json`).Code)
}

func TestPlanAndDisaster(t *testing.T) {
	c, mux := setup(t)
	ctx := context.Background()
	a, err := c.AddZone(ctx, model.Zone{Name: "A", Population: 1000, Risk: 40})
	require.NoError(t, err)
	b, err := c.AddZone(ctx, model.Zone{Name: "B", Population: 100, Type: model.ZoneShelter})
	require.NoError(t, err)
	_, err = c.AddRoute(ctx, model.Route{Origin: a.ID, Destination: b.ID, DistanceKM: 40, TimeHours: 1, Capacity: 100, Available: true})
	require.NoError(t, err)

	rec := call(mux, http.MethodPost, "/api/evacuations/plan", `{"origin":"`+a.ID+`","destination":"`+b.ID+`","persons":100}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[simulation.EvacuationPlan](t, rec)
	assert.Equal(t, 2, plan.Vehicles)
	assert.InDelta(t, 40, plan.DistanceKM, 1e-9)
	assert.Equal(t, simulation.FromRoute, plan.DistanceSource)

	assert.Equal(t, http.StatusBadRequest, call(mux, http.MethodPost, "/api/evacuations/plan", `{"origin":"`+a.ID+`","destination":"`+a.ID+`","persons":1}`).Code)

	rec = call(mux, http.MethodPost, "/api/simulations/disaster", `{"type":"flood","intensity":40,"zones":["`+a.ID+`"],"apply":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[simulation.DisasterResult](t, rec)
	assert.True(t, res.Applied)
	require.Len(t, res.Zones, 1)
	updated, err := c.Zone(a.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Zones[0].NewRisk, updated.Risk)
	assert.Greater(t, updated.Risk, 40)

	rec = call(mux, http.MethodPost, "/api/simulations/disaster", `{"type":"meteor","intensity":40,"zones":["`+a.ID+`"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_disaster")
	assert.Equal(t, http.StatusBadRequest, call(mux, http.MethodPost, "/api/simulations/disaster", `{"type":"fire","intensity":0,"zones":["`+a.ID+`"]}`).Code)
	assert.Equal(t, http.StatusNotFound, call(mux, http.MethodPost, "/api/simulations/disaster", `{"type":"fire","intensity":10,"zones":["ghost"]}`).Code)
}
