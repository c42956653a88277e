// Package plugins registers the durable store backends with core/store.
// Importing it for side effects makes "sqlite" and "postgres" selectable
// from the storage section of the configuration.
package plugins

import (
	"context"
	"time"

	"github.com/kilianp07/relief/core/factory"
	"github.com/kilianp07/relief/core/store"
	"github.com/kilianp07/relief/infra/storage/postgres"
	"github.com/kilianp07/relief/infra/storage/sqlite"
)

// ConnectTimeout bounds the initial postgres connection and migration.
const ConnectTimeout = 10 * time.Second

func init() {
	_ = store.Register("sqlite", func(conf map[string]any) (store.Store, error) {
		var c sqlite.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return sqlite.Open(c.Path)
	})
	_ = store.Register("postgres", func(conf map[string]any) (store.Store, error) {
		var c postgres.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
		defer cancel()
		return postgres.Open(ctx, c)
	})
}
