// Package config loads the declarative description of what a Channel
// should register at startup. It is adapted from cellorg's YAML config
// loader (tenzoki-agen internal/config/config.go) down to the one concern
// this system actually has no CLI, no pool/cells topology, just a
// channel's tuning knobs and the static object manifest an embedder wants
// registered before the first client connects.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PropertyUpdateIntervalDefaultMS is the shared constant from spec.md
// section 6 (PROPERTY_UPDATE_INTERVAL), used whenever a ChannelConfig
// leaves the field unset.
const PropertyUpdateIntervalDefaultMS = 50

// ChannelConfig describes one Channel's tuning and static object manifest.
type ChannelConfig struct {
	// PropertyUpdateIntervalMS is the timer period armed while clientIsIdle
	// is true and updates are pending (spec.md section 4.3). Zero means
	// "use PropertyUpdateIntervalDefaultMS".
	PropertyUpdateIntervalMS int `yaml:"property_update_interval_ms"`

	// Debug enables verbose per-message logging.
	Debug bool `yaml:"debug"`

	// Objects lists registered objects an embedder wants published as
	// soon as the Channel starts, keyed by the id the embedder wants on
	// the wire. The embedder is still responsible for resolving Class to
	// an actual host object instance; this manifest only declares intent
	// (spec.md has no persisted state, so this is a startup-time wiring
	// aid, not a snapshot of runtime state).
	Objects []ObjectManifestEntry `yaml:"objects"`
}

// ObjectManifestEntry names one object to register at startup.
type ObjectManifestEntry struct {
	ID    string `yaml:"id"`
	Class string `yaml:"class"`
}

// IntervalOrDefault returns PropertyUpdateIntervalMS, or
// PropertyUpdateIntervalDefaultMS if it was left at zero.
func (c *ChannelConfig) IntervalOrDefault() int {
	if c.PropertyUpdateIntervalMS <= 0 {
		return PropertyUpdateIntervalDefaultMS
	}
	return c.PropertyUpdateIntervalMS
}

// Load reads and parses a ChannelConfig from a YAML file.
func Load(filename string) (*ChannelConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", filename, err)
	}

	var cfg ChannelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", filename, err)
	}

	if cfg.PropertyUpdateIntervalMS < 0 {
		return nil, fmt.Errorf("config: property_update_interval_ms cannot be negative: %d", cfg.PropertyUpdateIntervalMS)
	}

	return &cfg, nil
}
