// Package bundlekit provides the public Go library API for bundlekit.
//
// bundlekit loads a declarative build configuration, validates it up front
// and bundles the declared entry points with esbuild. All validation
// failures of a configuration are reported together as a *ValidationError
// whose individual errors can be matched with errors.As.
//
// # Basic Usage
//
//	cfg, err := bundlekit.LoadFile("bundlekit.yaml", bundlekit.LoadOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// One-shot build
//	result, err := bundlekit.Build(ctx, cfg, bundlekit.BuildOptions{})
//
//	// Dev server, until ctx is cancelled
//	err = bundlekit.Serve(ctx, cfg, bundlekit.BuildOptions{})
package bundlekit

import (
	"context"
	"io"
	"path/filepath"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/devserver"
	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/bianoble/bundlekit/internal/manifest"
	"github.com/bianoble/bundlekit/internal/postbuild"
	"github.com/rs/zerolog"
)

// BuildOptions configures Build and Serve.
type BuildOptions struct {
	// Logger receives build diagnostics. The zero value discards them.
	Logger zerolog.Logger

	// Output receives bundle analysis in log mode. Nil means stdout.
	Output io.Writer
}

// Load parses a raw YAML declaration, resolving relative paths against
// opts.BaseDir. It returns a ready configuration or every problem found.
func Load(raw []byte, opts LoadOptions) (*Config, error) {
	return config.Parse(raw, opts)
}

// LoadFile loads a configuration file together with its mode overlay
// (bundlekit.<mode>.yaml next to it) when opts.Mode is set and the overlay
// exists.
func LoadFile(path string, opts LoadOptions) (*Config, error) {
	layers := config.DiscoverPaths(config.DiscoverOptions{
		ProjectPath: path,
		Mode:        opts.Mode,
		NoOverlay:   config.EnvNoOverlay(),
	})
	return config.LoadLayers(config.Paths(layers), opts)
}

// Build bundles cfg's entry points and runs its plugins.
func Build(ctx context.Context, cfg *Config, opts BuildOptions) (*Result, error) {
	eng, err := newEngine(cfg, opts)
	if err != nil {
		return nil, err
	}
	return eng.Build(ctx)
}

// Serve runs the development server until ctx is cancelled.
func Serve(ctx context.Context, cfg *Config, opts BuildOptions) error {
	eng, err := newEngine(cfg, opts)
	if err != nil {
		return err
	}
	return devserver.New(eng, opts.Logger).Run(ctx)
}

// Check compares the output directory against the manifest at path. An
// empty path uses the manifest plugin's file in output.path.
func Check(cfg *Config, path string) (*CheckResult, error) {
	if path == "" {
		name := config.DefaultManifestFilename
		for _, p := range cfg.Plugins {
			if p.Kind == config.PluginManifest && p.String("filename") != "" {
				name = p.String("filename")
				break
			}
		}
		path = filepath.Join(cfg.Output.Path, name)
	}

	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return manifest.Check(cfg.Output.Path, m)
}

func newEngine(cfg *Config, opts BuildOptions) (*engine.Engine, error) {
	actions, err := postbuild.FromConfig(cfg, opts.Logger, opts.Output)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, opts.Logger, actions...), nil
}
