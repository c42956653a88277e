package journal

import "fmt"

// Config defines journal storage and rotation.
type Config struct {
	// Backend selects the store: "jsonl", "rotating", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
	// Token, when set, must be presented as a bearer token to read the journal.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "relief-journal.log"
	}
	if c.Backend == "rotating" && c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "rotating", "sqlite":
	case "none":
		return nil
	default:
		return fmt.Errorf("unknown journal backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// Open builds the store selected by c.
func Open(c Config) (Store, error) {
	switch c.Backend {
	case "jsonl":
		return NewJSONLStore(c.Path)
	case "rotating":
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	case "none":
		return Discard{}, nil
	}
	return nil, fmt.Errorf("unknown journal backend %s", c.Backend)
}
