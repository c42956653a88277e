package store

import "github.com/kilianp07/relief/core/factory"

var registry = factory.NewRegistry[Store]("storage")

func init() {
	registry.MustRegister("memory", func(map[string]any) (Store, error) {
		return NewMemory(), nil
	})
}

// Register makes a storage backend available under name.
func Register(name string, f factory.Factory[Store]) error {
	return registry.Register(name, f)
}

// New creates the backend selected by cfg. An empty type selects memory.
func New(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return registry.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Names() }
