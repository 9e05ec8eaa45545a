// Package config loads the engine's process-wide tunables from a YAML
// file, the ambient concern spec.md leaves unspecified (SPEC_FULL.md
// §2.3). Structured the way the teacher's own YAML fixtures are tagged
// (internal/testhelper/examples_test.go: plain `yaml:"..."` struct
// tags, gopkg.in/yaml.v3.Unmarshal), the only place yaml appears in the
// teacher's tree.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qemacs/ebuf/buffer"
)

// EngineConfig holds the tunables spec.md leaves as implementation
// choices: the undo log's bound, the mmap threshold, and the default
// charset new buffers start with.
type EngineConfig struct {
	LogMax         int    `yaml:"log_max"`
	MmapMinSize    int64  `yaml:"mmap_min_size"`
	DefaultCharset string `yaml:"default_charset"`
	Autosave       struct {
		Enabled  bool   `yaml:"enabled"`
		CronExpr string `yaml:"cron_expr"`
	} `yaml:"autosave"`
}

// Default returns the engine's built-in tunables: LogMax and MmapMinSize
// are the buffer package's current values, and the autosave entries
// (disabled, every five minutes) are this package's own defaults.
func Default() EngineConfig {
	var cfg EngineConfig
	cfg.LogMax = buffer.DefaultLogMax
	cfg.MmapMinSize = buffer.MmapMinSize
	cfg.DefaultCharset = "latin1"
	cfg.Autosave.Enabled = false
	cfg.Autosave.CronExpr = "0 */5 * * * *"
	return cfg
}

// Load reads and parses a YAML config file at path, starting from
// Default() so a partial file only overrides what it names.
func Load(path string) (EngineConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Charset resolves the configured default charset name to a
// buffer.Charset, falling back to Latin-1 for an unrecognized name.
func (c EngineConfig) Charset() *buffer.Charset {
	switch c.DefaultCharset {
	case "utf-8", "utf8":
		return buffer.UTF8Charset()
	case "ascii":
		return buffer.ASCIICharset()
	default:
		return buffer.Latin1Charset()
	}
}

// Apply pushes the process-wide tunables (LogMax, MmapMinSize) into the
// buffer package. The charset is a per-buffer setting and is applied by
// the caller at buffer-construction time via Charset().
func (c EngineConfig) Apply() {
	if c.LogMax > 0 {
		buffer.DefaultLogMax = c.LogMax
	}
	if c.MmapMinSize > 0 {
		buffer.MmapMinSize = c.MmapMinSize
	}
}
