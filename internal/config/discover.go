package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the configuration file looked up by the CLI.
const DefaultFileName = "bundlekit.yaml"

// LayerKind represents the precedence level of a configuration file.
type LayerKind string

const (
	LayerBase    LayerKind = "base"
	LayerOverlay LayerKind = "overlay"
)

// LayerInfo describes a discovered config file.
type LayerInfo struct {
	Path string
	Kind LayerKind
}

// DiscoverOptions controls how config paths are discovered.
type DiscoverOptions struct {
	// ProjectPath is the base config path (required).
	ProjectPath string

	// Mode selects the overlay file bundlekit.<mode>.yaml next to the base
	// config. Empty means no overlay.
	Mode Mode

	// NoOverlay skips overlay lookup entirely.
	NoOverlay bool
}

// DiscoverPaths returns the ordered list of config files to load, from
// lowest precedence (base) to highest (mode overlay). Overlays that do not
// exist on disk are skipped; the base path is always returned.
func DiscoverPaths(opts DiscoverOptions) []LayerInfo {
	layers := []LayerInfo{{Path: opts.ProjectPath, Kind: LayerBase}}

	if opts.NoOverlay || opts.Mode == "" || opts.ProjectPath == "" {
		return layers
	}

	overlay := OverlayPath(opts.ProjectPath, opts.Mode)
	if info, err := os.Stat(overlay); err == nil && !info.IsDir() {
		layers = append(layers, LayerInfo{Path: overlay, Kind: LayerOverlay})
	}
	return layers
}

// OverlayPath returns the mode overlay path for a base config:
// dir/bundlekit.yaml becomes dir/bundlekit.production.yaml.
func OverlayPath(basePath string, mode Mode) string {
	dir, file := filepath.Split(basePath)
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	return filepath.Join(dir, stem+"."+string(mode)+ext)
}

// Paths extracts the file paths from discovered layers.
func Paths(layers []LayerInfo) []string {
	paths := make([]string, len(layers))
	for i, l := range layers {
		paths[i] = l.Path
	}
	return paths
}

// EnvNoOverlay returns true if BUNDLEKIT_NO_OVERLAY is set to "1" or "true".
func EnvNoOverlay() bool {
	return envBoolTrue("BUNDLEKIT_NO_OVERLAY")
}

// envBoolTrue returns true if the env var is set to "1" or "true" (case-insensitive).
func envBoolTrue(key string) bool {
	v := os.Getenv(key)
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}
