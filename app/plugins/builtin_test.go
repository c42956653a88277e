package plugins

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/factory"
	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/store"
)

func TestBackendsRegistered(t *testing.T) {
	assert.Subset(t, store.Backends(), []string{"memory", "sqlite", "postgres"})
}

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relief.db")
	s, err := store.New(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": path}})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveZone(ctx, model.Zone{ID: "z1", Name: "Cali", Population: 10, InitialPopulation: 10}))
	snap, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Zones, 1)
	assert.Equal(t, "Cali", snap.Zones[0].Name)
}

func TestSQLiteBackendRequiresPath(t *testing.T) {
	_, err := store.New(factory.ModuleConfig{Type: "sqlite"})
	assert.Error(t, err)
}

func TestPostgresBadDSN(t *testing.T) {
	_, err := store.New(factory.ModuleConfig{Type: "postgres", Conf: map[string]any{"dsn": "://nope"}})
	assert.Error(t, err)
}
