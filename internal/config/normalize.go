package config

import (
	"fmt"
	"maps"
	"path/filepath"
)

// Defaults applied to unset fields.
const (
	DefaultEntryName           = "main"
	DefaultEntryPath           = "src/index.js"
	DefaultOutputPath          = "dist"
	DefaultFilename            = "[name].[contenthash].js"
	DefaultAssetModuleFilename = "[name].[contenthash][ext]"
	DefaultPublicPath          = "/"
	DefaultHost                = "localhost"
	DefaultPort                = 8080
	DefaultHTMLTitle           = "bundlekit App"
	DefaultHTMLFilename        = "index.html"
	DefaultAnalyzerMode        = "static"
	DefaultReportFilename      = "report.txt"
	DefaultManifestFilename    = "manifest.json"
)

// DefaultDevtool returns the source-map strategy used when none is declared.
func DefaultDevtool(mode Mode) Devtool {
	if mode == ModeDevelopment {
		return DevtoolInlineSourceMap
	}
	return DevtoolNone
}

// Normalize resolves relative paths and fills defaults in place. It never
// overwrites a declared value, so normalizing twice is a no-op.
func Normalize(cfg *Config, opts LoadOptions) error {
	base := opts.BaseDir
	if base == "" {
		base = "."
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("resolving base directory: %w", err)
	}

	if opts.Mode != "" {
		cfg.Mode = opts.Mode
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeProduction
	}

	cfg.Context = resolvePath(base, cfg.Context)
	ctx := cfg.Context

	// Entry points.
	entry := make(map[string]string, len(cfg.Entry))
	for name, path := range cfg.Entry {
		entry[name] = resolvePath(ctx, path)
	}
	if len(entry) == 0 {
		entry[DefaultEntryName] = resolvePath(ctx, DefaultEntryPath)
	}
	cfg.Entry = entry

	// Output.
	out := &cfg.Output
	if out.Path == "" {
		out.Path = DefaultOutputPath
	}
	out.Path = resolvePath(ctx, out.Path)
	if out.Filename == "" {
		out.Filename = DefaultFilename
	}
	if out.AssetModuleFilename == "" {
		out.AssetModuleFilename = DefaultAssetModuleFilename
	}
	if out.Clean == nil {
		out.Clean = boolPtr(false)
	}
	if out.PublicPath == "" {
		out.PublicPath = DefaultPublicPath
	}

	if cfg.Devtool == "" {
		cfg.Devtool = DefaultDevtool(cfg.Mode)
	}

	// Dev server.
	ds := &cfg.DevServer
	if ds.Static.Directory == "" {
		ds.Static.Directory = out.Path
	}
	ds.Static.Directory = resolvePath(ctx, ds.Static.Directory)
	if ds.Host == "" {
		ds.Host = DefaultHost
	}
	if ds.Port == 0 {
		ds.Port = DefaultPort
	}
	if ds.Open == nil {
		ds.Open = boolPtr(false)
	}
	if ds.Hot == nil {
		ds.Hot = boolPtr(true)
	}
	if ds.Compress == nil {
		ds.Compress = boolPtr(true)
	}
	if ds.HistoryAPIFallback == nil {
		ds.HistoryAPIFallback = boolPtr(false)
	}

	// Plugins.
	plugins := make([]Plugin, len(cfg.Plugins))
	for i, p := range cfg.Plugins {
		plugins[i] = normalizePlugin(p, ctx)
	}
	if len(plugins) > 0 {
		cfg.Plugins = plugins
	}

	return nil
}

func normalizePlugin(p Plugin, ctx string) Plugin {
	opts := make(map[string]any, len(p.Options)+3)
	maps.Copy(opts, p.Options)

	setDefault := func(key string, value any) {
		if _, ok := opts[key]; !ok {
			opts[key] = value
		}
	}

	switch p.Kind {
	case PluginHTML:
		setDefault("title", DefaultHTMLTitle)
		setDefault("filename", DefaultHTMLFilename)
		setDefault("inject", true)
		if tmpl, ok := opts["template"].(string); ok && tmpl != "" {
			opts["template"] = resolvePath(ctx, tmpl)
		}
	case PluginBundleAnalyzer:
		setDefault("analyzerMode", DefaultAnalyzerMode)
		setDefault("reportFilename", DefaultReportFilename)
	case PluginManifest:
		setDefault("filename", DefaultManifestFilename)
	}

	if len(opts) == 0 {
		opts = nil
	}
	return Plugin{Kind: p.Kind, Options: opts}
}

// resolvePath anchors p at base unless it is already absolute.
// An empty p resolves to base.
func resolvePath(base, p string) string {
	if p == "" {
		return base
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
