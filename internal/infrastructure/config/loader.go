package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

// Loader loads configuration from JSON files using the fs.FS interface
type Loader struct {
	fsys fs.FS
}

// NewLoader creates a new config loader from fs.FS
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// LoadCore loads core.json on top of the defaults; missing fields keep
// their tuned default values. A missing file is not an error.
func (l *Loader) LoadCore() (*CoreConfig, error) {
	cfg := Default()

	data, err := fs.ReadFile(l.fsys, "core.json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read core.json: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse core.json: %w", err)
	}

	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("invalid core.json: %w", err)
	}
	return cfg, nil
}

func (c *CoreConfig) check() error {
	if c.Physics.Timestep <= 0 {
		return fmt.Errorf("physics.timestep must be positive, got %v", c.Physics.Timestep)
	}
	if c.Physics.DefaultMass <= 0 {
		return fmt.Errorf("physics.defaultMass must be positive, got %v", c.Physics.DefaultMass)
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be positive, got %d", c.Queue.Capacity)
	}
	if c.Validation.RateLimit <= 0 || c.Validation.RateWindowMS <= 0 {
		return fmt.Errorf("validation rate window must be positive")
	}
	if c.Validation.HistoryLength <= 0 {
		return fmt.Errorf("validation.historyLength must be positive, got %d", c.Validation.HistoryLength)
	}
	return nil
}
