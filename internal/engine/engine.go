package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/loaders"
	"github.com/bianoble/bundlekit/internal/manifest"
	"github.com/bianoble/bundlekit/internal/sandbox"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

// MetafileName is written to the output directory after every build.
const MetafileName = "meta.json"

// Action is a post-build step. Actions run in declared order after a
// successful build and see the same Result.
type Action interface {
	Name() string
	Run(ctx context.Context, result *Result) error
}

// Result describes a finished build.
type Result struct {
	Config   *config.Config
	Metafile *Metafile
	// RawMetafile is esbuild's metafile JSON as emitted.
	RawMetafile string
	// Entries maps bundle names to the files each one loads.
	Entries map[string]manifest.Entry
	// Files lists every emitted file relative to output.path.
	Files    []string
	Warnings []string
	Duration time.Duration
	// LiveReload is the event-stream URL pages should subscribe to, or
	// empty when the build is not served with hot reload.
	LiveReload string
}

// AddFile records a file written by a post-build action. rel is relative
// to output.path.
func (r *Result) AddFile(rel string) {
	rel = filepath.ToSlash(rel)
	i := sort.SearchStrings(r.Files, rel)
	if i < len(r.Files) && r.Files[i] == rel {
		return
	}
	r.Files = slices.Insert(r.Files, i, rel)
}

// BuildError carries the diagnostics of a failed build.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return "build failed"
	}
	return fmt.Sprintf("build failed with %d error(s): %s", len(e.Messages), e.Messages[0])
}

// Engine hands a normalized configuration to esbuild.
type Engine struct {
	Config     *config.Config
	Registry   *loaders.Registry
	Actions    []Action
	Logger     zerolog.Logger
	LiveReload string

	// mu serializes post-build actions; last is the most recent
	// successful build.
	mu   sync.Mutex
	last *Result
}

// New creates an Engine for cfg using the registry its loader definitions describe.
func New(cfg *config.Config, logger zerolog.Logger, actions ...Action) *Engine {
	return &Engine{
		Config:   cfg,
		Registry: cfg.Registry(),
		Actions:  actions,
		Logger:   logger,
	}
}

// Build runs a single build followed by the post-build actions.
func (e *Engine) Build(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts, err := Options(e.Config, e.Registry)
	if err != nil {
		return nil, err
	}
	if err := e.clean(); err != nil {
		return nil, err
	}

	e.Logger.Info().
		Strs("entrypoints", entryNames(e.Config)).
		Str("mode", string(e.Config.Mode)).
		Str("outdir", e.Config.Output.Path).
		Msg("Building assets")

	start := time.Now()
	res := api.Build(opts)
	return e.complete(ctx, res, time.Since(start))
}

// Watch builds once and then rebuilds whenever an input changes, calling
// onBuild after every build. It blocks until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, onBuild func(*Result, error)) error {
	opts, err := Options(e.Config, e.Registry)
	if err != nil {
		return err
	}
	if err := e.clean(); err != nil {
		return err
	}

	var started atomic.Int64
	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: "bundlekit-notify",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				started.Store(time.Now().UnixNano())
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(res *api.BuildResult) (api.OnEndResult, error) {
				elapsed := time.Since(time.Unix(0, started.Load()))
				result, err := e.complete(ctx, *res, elapsed)
				if onBuild != nil {
					onBuild(result, err)
				}
				return api.OnEndResult{}, nil
			})
		},
	})

	bctx, cerr := api.Context(opts)
	if cerr != nil {
		return &BuildError{Messages: formatMessages(cerr.Errors)}
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("starting watch: %w", err)
	}
	e.Logger.Info().Strs("entrypoints", entryNames(e.Config)).Msg("Watching for changes")

	<-ctx.Done()
	return nil
}

// RunActions runs the post-build actions against a finished build.
// Concurrent calls, including those made by a watch rebuild, run one at a time.
func (e *Engine) RunActions(ctx context.Context, result *Result) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runActions(ctx, result)
}

// Rerun runs the post-build actions again against the most recent
// successful build. It reports false when no build has completed yet.
func (e *Engine) Rerun(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return false, nil
	}
	return true, e.runActions(ctx, e.last)
}

func (e *Engine) runActions(ctx context.Context, result *Result) error {
	for _, action := range e.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := action.Run(ctx, result); err != nil {
			return fmt.Errorf("post-build action %s: %w", action.Name(), err)
		}
		e.Logger.Debug().Str("action", action.Name()).Msg("Post-build action complete")
	}
	return nil
}

func (e *Engine) complete(ctx context.Context, res api.BuildResult, elapsed time.Duration) (*Result, error) {
	warnings := formatMessages(res.Warnings)
	for _, w := range warnings {
		e.Logger.Warn().Str("warning", w).Msg("Build warning")
	}

	if len(res.Errors) > 0 {
		msgs := formatMessages(res.Errors)
		for _, msg := range msgs {
			e.Logger.Error().Str("error", msg).Msg("Build error")
		}
		return nil, &BuildError{Messages: msgs}
	}

	meta, err := ParseMetafile(res.Metafile)
	if err != nil {
		return nil, err
	}

	cfg := e.Config
	result := &Result{
		Config:      cfg,
		Metafile:    meta,
		RawMetafile: res.Metafile,
		Entries:     make(map[string]manifest.Entry, len(cfg.Entry)),
		Files:       meta.OutputFiles(cfg.Context, cfg.Output.Path),
		Warnings:    warnings,
		Duration:    elapsed,
		LiveReload:  e.LiveReload,
	}
	for name, input := range cfg.Entry {
		if entry, ok := meta.EntryFiles(cfg.Context, cfg.Output.Path, input); ok {
			result.Entries[name] = entry
		}
	}

	if err := sandbox.SafeWrite(cfg.Output.Path, MetafileName, []byte(res.Metafile), 0644); err != nil {
		return nil, fmt.Errorf("writing metafile: %w", err)
	}

	for _, f := range res.OutputFiles {
		e.Logger.Debug().Str("file", f.Path).Msg("Built file")
	}
	e.Logger.Info().
		Int("files", len(result.Files)).
		Dur("duration", elapsed).
		Msg("Build complete")

	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = result
	if err := e.runActions(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// clean empties output.path when configured to, refusing to touch a
// directory that holds sources.
func (e *Engine) clean() error {
	cfg := e.Config
	if !config.BoolValue(cfg.Output.Clean) {
		return nil
	}

	protected := make([]string, 0, len(cfg.Entry)+len(cfg.Plugins))
	for _, path := range cfg.Entry {
		protected = append(protected, path)
	}
	for _, p := range cfg.Plugins {
		if tmpl := p.String("template"); tmpl != "" {
			protected = append(protected, tmpl)
		}
	}

	if err := sandbox.CleanDir(cfg.Output.Path, protected...); err != nil {
		return fmt.Errorf("cleaning output: %w", err)
	}
	e.Logger.Debug().Str("outdir", cfg.Output.Path).Msg("Cleaned output directory")
	return nil
}

func entryNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Entry))
	for name := range cfg.Entry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		var b strings.Builder
		if m.Location != nil {
			fmt.Fprintf(&b, "%s:%d:%d: ", m.Location.File, m.Location.Line, m.Location.Column)
		}
		b.WriteString(m.Text)
		out = append(out, b.String())
	}
	return out
}
