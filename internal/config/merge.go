package config

import (
	"fmt"

	"github.com/bianoble/bundlekit/internal/loaders"
)

// Merge combines two configs where overlay takes precedence over base.
// This implements the layered merge semantics:
//   - scalars and flags: overlay wins when it sets a value
//   - entry: deep merge, overlay keys win
//   - loaderDefinitions: merge by name, same name in overlay replaces base entry
//   - module.rules, plugins: concatenate (base first, then overlay)
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Config{
		Mode:    pick(base.Mode, overlay.Mode),
		Context: pick(base.Context, overlay.Context),
		Devtool: pick(base.Devtool, overlay.Devtool),
	}

	// Entry: deep merge with overlay winning.
	result.Entry = mergeEntry(base.Entry, overlay.Entry)

	// Output: field by field.
	result.Output = Output{
		Path:                pick(base.Output.Path, overlay.Output.Path),
		Filename:            pick(base.Output.Filename, overlay.Output.Filename),
		Clean:               pickBool(base.Output.Clean, overlay.Output.Clean),
		AssetModuleFilename: pick(base.Output.AssetModuleFilename, overlay.Output.AssetModuleFilename),
		PublicPath:          pick(base.Output.PublicPath, overlay.Output.PublicPath),
	}

	// Dev server: field by field.
	b, o := base.DevServer, overlay.DevServer
	result.DevServer = DevServer{
		Static:             Static{Directory: pick(b.Static.Directory, o.Static.Directory)},
		Host:               pick(b.Host, o.Host),
		Port:               pick(b.Port, o.Port),
		Open:               pickBool(b.Open, o.Open),
		Hot:                pickBool(b.Hot, o.Hot),
		Compress:           pickBool(b.Compress, o.Compress),
		HistoryAPIFallback: pickBool(b.HistoryAPIFallback, o.HistoryAPIFallback),
	}

	// LoaderDefinitions: merge by name.
	result.LoaderDefinitions = mergeNamedDefinitions(base.LoaderDefinitions, overlay.LoaderDefinitions)

	// Rules: concatenate.
	result.Module.Rules = append(result.Module.Rules, base.Module.Rules...)
	result.Module.Rules = append(result.Module.Rules, overlay.Module.Rules...)

	// Plugins: concatenate.
	result.Plugins = append(result.Plugins, base.Plugins...)
	result.Plugins = append(result.Plugins, overlay.Plugins...)

	return result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func pick[T comparable](base, overlay T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

func pickBool(base, overlay *bool) *bool {
	if overlay != nil {
		return overlay
	}
	return base
}

func mergeEntry(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}

	result := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		result[k] = v // overlay wins
	}
	return result
}

func mergeNamedDefinitions(base, overlay []loaders.Definition) []loaders.Definition {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	overlayNames := make(map[string]bool, len(overlay))
	for _, d := range overlay {
		overlayNames[d.Name] = true
	}

	var result []loaders.Definition
	for _, d := range base {
		if !overlayNames[d.Name] {
			result = append(result, d)
		}
	}

	result = append(result, overlay...)

	return result
}
