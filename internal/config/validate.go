package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bianoble/bundlekit/internal/loaders"
)

var filenameToken = regexp.MustCompile(`\[([a-z]+)(?::(\d+))?\]`)

var allowedTokens = map[string]bool{
	"name":        true,
	"contenthash": true,
	"hash":        true,
	"ext":         true,
	"query":       true,
	"id":          true,
}

var analyzerModes = map[string]bool{
	"static":   true,
	"log":      true,
	"disabled": true,
}

// Registry returns the transform registry described by the config's loader definitions.
func (c *Config) Registry() *loaders.Registry {
	return loaders.NewRegistry(c.LoaderDefinitions)
}

// Validate checks a normalized Config for semantic correctness.
// Returns every failure found (empty if valid).
func Validate(cfg *Config) []error {
	var errs []error

	switch cfg.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		errs = append(errs, fmt.Errorf("invalid mode '%s' — must be one of: development, production", cfg.Mode))
	}

	switch cfg.Devtool {
	case DevtoolNone, DevtoolSourceMap, DevtoolInlineSourceMap, DevtoolHiddenSourceMap:
	default:
		errs = append(errs, fmt.Errorf("invalid devtool '%s' — must be one of: none, source-map, inline-source-map, hidden-source-map", cfg.Devtool))
	}

	// Entry points, in name order so reports are stable.
	names := make([]string, 0, len(cfg.Entry))
	for name := range cfg.Entry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" {
			errs = append(errs, fmt.Errorf("entry: bundle name must not be empty"))
			continue
		}
		if err := checkFile(fmt.Sprintf("entry '%s'", name), cfg.Entry[name]); err != nil {
			errs = append(errs, err)
		}
	}

	// Output naming.
	errs = append(errs, validateFilename("output.filename", cfg.Output.Filename)...)
	errs = append(errs, validateFilename("output.assetModuleFilename", cfg.Output.AssetModuleFilename)...)
	if len(cfg.Entry) > 1 && !hasAnyToken(cfg.Output.Filename, "name", "id") {
		errs = append(errs, fmt.Errorf("output.filename: %d entries would write to the same file — include [name] in the pattern", len(cfg.Entry)))
	}

	// Dev server.
	if cfg.DevServer.Port < 1 || cfg.DevServer.Port > 65535 {
		errs = append(errs, &InvalidPortError{Port: cfg.DevServer.Port})
	}

	// Loader definitions.
	defNames := make(map[string]bool)
	for i, d := range cfg.LoaderDefinitions {
		prefix := fmt.Sprintf("loaderDefinitions[%d]", i)
		if d.Name != "" {
			prefix = fmt.Sprintf("loader definition '%s'", d.Name)
		}
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("%s: 'name' is required", prefix))
		} else if defNames[d.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate definition", prefix))
		} else {
			defNames[d.Name] = true
		}
		if d.Loader != loaders.LoaderNone && !loaders.ValidLoader(d.Loader) {
			errs = append(errs, fmt.Errorf("%s: unknown loader '%s'", prefix, d.Loader))
		}
	}

	errs = append(errs, validateRules(cfg)...)
	errs = append(errs, validatePlugins(cfg.Plugins)...)

	return errs
}

func validateRules(cfg *Config) []error {
	var errs []error
	reg := cfg.Registry()

	for i, rule := range cfg.Module.Rules {
		prefix := fmt.Sprintf("module.rules[%d]", i)

		if rule.Test.IsZero() {
			errs = append(errs, fmt.Errorf("%s: 'test' is required", prefix))
		}
		if len(rule.Use) == 0 && rule.Type == "" {
			errs = append(errs, fmt.Errorf("%s: one of 'use' or 'type' is required", prefix))
		}
		if rule.Type != "" {
			if _, ok := loaders.AssetLoader(rule.Type); !ok {
				errs = append(errs, fmt.Errorf("%s: invalid type '%s' — must be one of: asset, asset/resource, asset/inline, asset/source", prefix, rule.Type))
			}
		}
		for j, step := range rule.Use {
			if step.Loader == "" {
				errs = append(errs, fmt.Errorf("%s: use[%d]: 'loader' is required", prefix, j))
				continue
			}
			if !reg.Has(step.Loader) {
				errs = append(errs, &UnknownTransformError{Rule: i, Loader: step.Loader})
			}
		}
	}

	errs = append(errs, detectConflicts(cfg)...)
	return errs
}

// detectConflicts finds pairs of rules that match a common file, transform
// it differently and share a priority. Candidate files are each rule's
// sample files, the declared entry points, and each rule's sampled file names
// placed in the other rule's sampled directories.
func detectConflicts(cfg *Config) []error {
	rules := cfg.Module.Rules
	if len(rules) < 2 {
		return nil
	}

	var extra []string
	for _, path := range cfg.Entry {
		extra = append(extra, path)
	}
	sort.Strings(extra)

	files := make([][]string, len(rules))
	for i, r := range rules {
		files[i] = r.SampleFiles()
	}

	var errs []error
	for i := range rules {
		for j := i + 1; j < len(rules); j++ {
			if rules[i].Priority != rules[j].Priority || rules[i].Compatible(rules[j]) {
				continue
			}
			cross := combinedFiles(files[i], files[j])
			if file, ok := sharedFile(rules[i], rules[j], files[i], files[j], extra, cross); ok {
				errs = append(errs, &ConflictingRuleError{First: i, Second: j, File: file})
			}
		}
	}
	return errs
}

func sharedFile(a, b Rule, candidates ...[]string) (string, bool) {
	for _, list := range candidates {
		for _, file := range list {
			if a.Matches(file) && b.Matches(file) {
				return file, true
			}
		}
	}
	return "", false
}

func validatePlugins(plugins []Plugin) []error {
	var errs []error
	for i, p := range plugins {
		prefix := fmt.Sprintf("plugins[%d] (%s)", i, p.Kind)

		switch p.Kind {
		case PluginHTML:
			if tmpl := p.String("template"); tmpl != "" {
				if err := checkFile(prefix+" template", tmpl); err != nil {
					errs = append(errs, err)
				}
			}
			errs = append(errs, checkLocal(prefix, "filename", p.String("filename"))...)
		case PluginBundleAnalyzer:
			mode := p.String("analyzerMode")
			if !analyzerModes[mode] {
				errs = append(errs, fmt.Errorf("%s: invalid analyzerMode '%s' — must be one of: static, log, disabled", prefix, mode))
			}
			if mode == "static" {
				errs = append(errs, checkLocal(prefix, "reportFilename", p.String("reportFilename"))...)
			}
		case PluginManifest:
			errs = append(errs, checkLocal(prefix, "filename", p.String("filename"))...)
		case "":
			errs = append(errs, fmt.Errorf("plugins[%d]: 'kind' is required", i))
		default:
			errs = append(errs, &UnknownPluginError{Index: i, Kind: p.Kind})
		}
	}
	return errs
}

// checkLocal requires a plugin output name that stays inside output.path.
func checkLocal(prefix, key, name string) []error {
	if name == "" {
		return []error{fmt.Errorf("%s: '%s' must be a non-empty string", prefix, key)}
	}
	if !filepath.IsLocal(name) {
		return []error{fmt.Errorf("%s: '%s' must be a relative path inside output.path, got %q", prefix, key, name)}
	}
	return nil
}

func checkFile(field, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &InvalidPathError{Field: field, Path: path, Err: err}
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %s is a directory, not a file", field, path)
	}
	return nil
}

func validateFilename(field, pattern string) []error {
	var errs []error
	for _, m := range filenameToken.FindAllStringSubmatch(pattern, -1) {
		if !allowedTokens[m[1]] {
			errs = append(errs, fmt.Errorf("%s: unknown token '[%s]' — supported: [name], [contenthash], [hash], [ext], [query], [id]", field, m[1]))
		}
	}
	return errs
}

func hasAnyToken(pattern string, tokens ...string) bool {
	for _, m := range filenameToken.FindAllStringSubmatch(pattern, -1) {
		for _, t := range tokens {
			if m[1] == t {
				return true
			}
		}
	}
	return false
}
