package mkernel

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the kernel configuration. The
// ceilings mirror the fixed build-time constants of an embedded target; they
// are set once at construction and never renegotiated at runtime.
type Config struct {
	MaxTasks       int `json:"maxTasks" yaml:"maxTasks"`
	Priorities     int `json:"priorities" yaml:"priorities"`
	TickRateHz     int `json:"tickRateHz" yaml:"tickRateHz"`
	MinStackSize   int `json:"minStackSize" yaml:"minStackSize"`
	HeapSize       int `json:"heapSize" yaml:"heapSize"`
	MaxQueueLength int `json:"maxQueueLength" yaml:"maxQueueLength"`
	MaxTimers      int `json:"maxTimers" yaml:"maxTimers"`
}

// DefaultConfig returns the standard simulation profile.
func DefaultConfig() *Config {
	return &Config{
		MaxTasks:       32,
		Priorities:     8,
		TickRateHz:     1000,
		MinStackSize:   1024,
		HeapSize:       1024 * 1024,
		MaxQueueLength: 16,
		MaxTimers:      16,
	}
}

// Validate returns an aggregated error describing invalid settings, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var issues []string
	if c.MaxTasks <= 0 {
		issues = append(issues, "maxTasks must be > 0")
	}
	if c.Priorities <= 0 {
		issues = append(issues, "priorities must be > 0")
	}
	if c.TickRateHz <= 0 {
		issues = append(issues, "tickRateHz must be > 0")
	}
	if c.MinStackSize <= 0 {
		issues = append(issues, "minStackSize must be > 0")
	}
	if c.HeapSize < c.MinStackSize {
		issues = append(issues, "heapSize must hold at least one minimum stack")
	}
	if c.MaxQueueLength <= 0 {
		issues = append(issues, "maxQueueLength must be > 0")
	}
	if c.MaxTimers <= 0 {
		issues = append(issues, "maxTimers must be > 0")
	}
	if len(issues) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %v", issues)
}

// LoadConfig reads a YAML configuration from the given URL (any scheme the
// virtual file system supports) layered over DefaultConfig.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
