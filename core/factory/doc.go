// Package factory instantiates pluggable modules, such as storage backends and
// metrics sinks, from a type name plus a map of raw settings.
//
//	stores := factory.NewRegistry[store.Store]("store")
//	stores.Register("sqlite", func(conf map[string]any) (store.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return sqlite.Open(c.Path)
//	})
//	s, err := stores.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "relief.db"}})
package factory
