package journal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corejournal "github.com/kilianp07/relief/core/journal"
)

func newStore(t *testing.T) corejournal.Store {
	t.Helper()
	s, err := corejournal.NewJSONLStore(filepath.Join(t.TempDir(), "journal.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []corejournal.Record{
		{Timestamp: base, Operation: "zone.create", Subject: "z1"},
		{Timestamp: base.Add(time.Hour), Operation: "stock.add", Subject: "almacen"},
		{Timestamp: base.Add(2 * time.Hour), Operation: "zone.update", Subject: "z1"},
	}
	for _, r := range recs {
		require.NoError(t, s.Append(context.Background(), r))
	}
	return s
}

func query(t *testing.T, h http.Handler, target, token string) (int, []corejournal.Record) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out []corejournal.Record
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestHandlerAuth(t *testing.T) {
	h := NewHandler(newStore(t), "tok")
	code, _ := query(t, h, "/api/journal", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = query(t, h, "/api/journal", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, recs := query(t, h, "/api/journal", "tok")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, recs, 3)
}

func TestHandlerFilters(t *testing.T) {
	h := NewHandler(newStore(t), "")

	_, recs := query(t, h, "/api/journal?subject=z1", "")
	assert.Len(t, recs, 2)
	_, recs = query(t, h, "/api/journal?operation=stock.add", "")
	require.Len(t, recs, 1)
	assert.Equal(t, "almacen", recs[0].Subject)
	_, recs = query(t, h, "/api/journal?start=2026-03-01T12:30:00Z&end=2026-03-01T14:30:00Z", "")
	assert.Len(t, recs, 2)
	code, recs := query(t, h, "/api/journal?operation=team.assign", "")
	assert.Equal(t, http.StatusOK, code)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	code, _ = query(t, h, "/api/journal?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = query(t, h, "/api/journal?start=2026-03-02T00:00:00Z&end=2026-03-01T00:00:00Z", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
