// Package postbuild implements the actions that run after a successful
// build: HTML page generation, bundle analysis and the build manifest.
package postbuild

import (
	"io"
	"os"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/rs/zerolog"
)

// FromConfig creates the actions declared in cfg.Plugins, in order.
// Output written by the analyzer in log mode goes to out; nil means stdout.
func FromConfig(cfg *config.Config, logger zerolog.Logger, out io.Writer) ([]engine.Action, error) {
	if out == nil {
		out = os.Stdout
	}

	actions := make([]engine.Action, 0, len(cfg.Plugins))
	for i, p := range cfg.Plugins {
		switch p.Kind {
		case config.PluginHTML:
			actions = append(actions, &HTML{
				Title:    p.String("title"),
				Filename: p.String("filename"),
				Template: p.String("template"),
				Inject:   p.Bool("inject", true),
				Logger:   logger,
			})
		case config.PluginBundleAnalyzer:
			actions = append(actions, &Analyzer{
				Mode:           p.String("analyzerMode"),
				ReportFilename: p.String("reportFilename"),
				Verbose:        p.Bool("verbose", false),
				Out:            out,
				Logger:         logger,
			})
		case config.PluginManifest:
			actions = append(actions, &Manifest{
				Filename: p.String("filename"),
				Logger:   logger,
			})
		default:
			return nil, &config.UnknownPluginError{Index: i, Kind: p.Kind}
		}
	}
	return actions, nil
}
