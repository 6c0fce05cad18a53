package engine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/loaders"
	"github.com/evanw/esbuild/pkg/api"
)

var (
	hashToken    = regexp.MustCompile(`\[(contenthash|hash|fullhash)(?::\d+)?\]`)
	idToken      = regexp.MustCompile(`\[id\]`)
	dropToken    = regexp.MustCompile(`\[(ext|query)\]`)
	scriptSuffix = regexp.MustCompile(`\.(m|c)?js$`)
)

var esbuildLoaders = map[string]api.Loader{
	loaders.LoaderJS:      api.LoaderJS,
	loaders.LoaderJSX:     api.LoaderJSX,
	loaders.LoaderTS:      api.LoaderTS,
	loaders.LoaderTSX:     api.LoaderTSX,
	loaders.LoaderCSS:     api.LoaderCSS,
	loaders.LoaderJSON:    api.LoaderJSON,
	loaders.LoaderText:    api.LoaderText,
	loaders.LoaderFile:    api.LoaderFile,
	loaders.LoaderDataURL: api.LoaderDataURL,
	loaders.LoaderCopy:    api.LoaderCopy,
	loaders.LoaderBinary:  api.LoaderBinary,
	loaders.LoaderBase64:  api.LoaderBase64,
	loaders.LoaderEmpty:   api.LoaderEmpty,
}

// Options translates a normalized configuration into esbuild build options.
// It performs no I/O.
func Options(cfg *config.Config, reg *loaders.Registry) (api.BuildOptions, error) {
	names := make([]string, 0, len(cfg.Entry))
	for name := range cfg.Entry {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]api.EntryPoint, 0, len(names))
	for _, name := range names {
		entries = append(entries, api.EntryPoint{InputPath: cfg.Entry[name], OutputPath: name})
	}

	loaderMap, err := LoaderMap(cfg, reg)
	if err != nil {
		return api.BuildOptions{}, err
	}

	prod := cfg.Mode == config.ModeProduction
	nodeEnv := string(config.ModeDevelopment)
	treeShaking := api.TreeShakingDefault
	if prod {
		nodeEnv = string(config.ModeProduction)
		treeShaking = api.TreeShakingTrue
	}

	return api.BuildOptions{
		EntryPointsAdvanced: entries,
		AbsWorkingDir:       cfg.Context,
		Bundle:              true,
		Write:               true,
		Metafile:            true,
		Outdir:              cfg.Output.Path,
		EntryNames:          EntryNames(cfg.Output.Filename),
		AssetNames:          AssetNames(cfg.Output.AssetModuleFilename),
		ChunkNames:          "chunks/[name]-[hash]",
		PublicPath:          cfg.Output.PublicPath,
		Sourcemap:           Sourcemap(cfg.Devtool),
		Loader:              loaderMap,
		MinifyWhitespace:    prod,
		MinifyIdentifiers:   prod,
		MinifySyntax:        prod,
		TreeShaking:         treeShaking,
		Define:              map[string]string{"process.env.NODE_ENV": fmt.Sprintf("%q", nodeEnv)},
		LogLevel:            api.LogLevelSilent,
	}, nil
}

// EntryNames converts an output filename pattern to esbuild's entry naming
// template. Hash tokens collapse to [hash] (esbuild does not take a length),
// [id] becomes [name], and the extension is left to esbuild.
func EntryNames(pattern string) string {
	out := hashToken.ReplaceAllString(pattern, "[hash]")
	out = idToken.ReplaceAllString(out, "[name]")
	out = dropToken.ReplaceAllString(out, "")
	return scriptSuffix.ReplaceAllString(out, "")
}

// AssetNames converts an asset filename pattern to esbuild's asset naming
// template. esbuild appends the original extension itself.
func AssetNames(pattern string) string {
	out := hashToken.ReplaceAllString(pattern, "[hash]")
	out = idToken.ReplaceAllString(out, "[name]")
	return dropToken.ReplaceAllString(out, "")
}

// Sourcemap maps a devtool strategy to esbuild's source map mode.
func Sourcemap(d config.Devtool) api.SourceMap {
	switch d {
	case config.DevtoolSourceMap:
		return api.SourceMapLinked
	case config.DevtoolInlineSourceMap:
		return api.SourceMapInline
	case config.DevtoolHiddenSourceMap:
		return api.SourceMapExternal
	default:
		return api.SourceMapNone
	}
}

// LoaderMap derives esbuild's extension-to-loader table from the rules.
// Extensions come from each rule's sample files; when rules overlap the
// rule selected by Config.Match owns the extension.
func LoaderMap(cfg *config.Config, reg *loaders.Registry) (map[string]api.Loader, error) {
	out := make(map[string]api.Loader)

	for i := range cfg.Module.Rules {
		rule := &cfg.Module.Rules[i]

		name, err := ruleLoader(*rule, reg)
		if err != nil {
			return nil, fmt.Errorf("module.rules[%d]: %w", i, err)
		}
		if name == loaders.LoaderNone {
			continue
		}
		loader, ok := esbuildLoaders[name]
		if !ok {
			return nil, fmt.Errorf("module.rules[%d]: loader '%s' is not supported by the build engine", i, name)
		}

		for _, ext := range ruleExtensions(*rule) {
			if _, taken := out[ext]; taken {
				continue
			}
			if winner, ok := cfg.Match("x" + ext); !ok || winner != rule {
				continue
			}
			out[ext] = loader
		}
	}

	return out, nil
}

func ruleLoader(rule config.Rule, reg *loaders.Registry) (string, error) {
	if rule.Type != "" {
		loader, ok := loaders.AssetLoader(rule.Type)
		if !ok {
			return "", fmt.Errorf("invalid type '%s'", rule.Type)
		}
		return loader, nil
	}
	return reg.Effective(rule.Use.Loaders())
}

// ruleExtensions returns the distinct extensions of a rule's sample files.
// Mixed-case extensions also register their lower-case form.
func ruleExtensions(rule config.Rule) []string {
	seen := make(map[string]bool)
	var exts []string
	add := func(ext string) {
		if ext == "" || ext == "." || seen[ext] {
			return
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	for _, p := range rule.SampleFiles() {
		ext := filepath.Ext(p)
		add(ext)
		add(strings.ToLower(ext))
	}
	sort.Strings(exts)
	return exts
}
