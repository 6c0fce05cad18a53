package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// LoadOptions controls how a raw declaration is resolved.
type LoadOptions struct {
	// BaseDir anchors relative paths. Empty means the current directory
	// for Parse and the config file's directory for Load.
	BaseDir string

	// Mode overrides the declared mode when non-empty.
	Mode Mode
}

// Load reads, normalizes and validates a bundlekit.yaml configuration file.
func Load(path string, opts LoadOptions) (*Config, error) {
	return LoadLayers([]string{path}, opts)
}

// LoadLayers reads several configuration files, merges them in order
// (lowest precedence first) and normalizes the result once.
func LoadLayers(paths []string, opts LoadOptions) (*Config, error) {
	if len(paths) == 0 {
		return nil, errors.New("no config files to load")
	}

	layers := make([]*Config, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		cfg, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		layers = append(layers, cfg)
	}

	merged, err := MergeAll(layers)
	if err != nil {
		return nil, err
	}

	if opts.BaseDir == "" {
		abs, err := filepath.Abs(paths[0])
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		opts.BaseDir = filepath.Dir(abs)
	}

	return finish(merged, opts)
}

// Parse decodes a raw YAML declaration, resolves relative paths against
// opts.BaseDir, fills defaults and validates the result. On failure no
// configuration is returned; validation failures are reported together
// as a *ValidationError.
func Parse(raw []byte, opts LoadOptions) (*Config, error) {
	cfg, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return finish(cfg, opts)
}

func finish(cfg *Config, opts LoadOptions) (*Config, error) {
	if err := Normalize(cfg, opts); err != nil {
		return nil, err
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

func decode(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// Marshal serializes a configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes a configuration atomically.
func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Match returns the rule that applies to path. When several rules match,
// the highest priority wins and ties go to the first declared rule.
func (c *Config) Match(path string) (*Rule, bool) {
	best := -1
	for i := range c.Module.Rules {
		if !c.Module.Rules[i].Matches(path) {
			continue
		}
		if best < 0 || c.Module.Rules[i].Priority > c.Module.Rules[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return nil, false
	}
	return &c.Module.Rules[best], true
}
