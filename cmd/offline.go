package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kilianp07/relief/core/coordinator"
	"github.com/kilianp07/relief/core/scenario"
	"github.com/kilianp07/relief/infra/logger"
)

// offline is an in-memory coordinator seeded from a scenario file, with the
// name to id mapping the seed produced.
type offline struct {
	*coordinator.Coordinator
	ids map[string]string
}

func loadOffline(ctx context.Context, path string) (*offline, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	cfg := coordinator.Config{}
	cfg.SetDefaults()
	c := coordinator.New(cfg, logger.New("cli"))
	applied, err := c.Seed(ctx, sc)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("seed scenario: %w", err)
	}
	return &offline{Coordinator: c, ids: applied.Zones}, nil
}

// zoneID accepts either a zone name from the scenario or a zone id.
func (o *offline) zoneID(ref string) string {
	if id, ok := o.ids[ref]; ok {
		return id
	}
	return ref
}

func (o *offline) zoneName(id string) string {
	if z, err := o.Zone(id); err == nil {
		return z.Name
	}
	return id
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
