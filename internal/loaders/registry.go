package loaders

import (
	"fmt"
	"sort"
)

// Loader names understood by the build engine. They mirror esbuild's loader
// names so a definition can be written in bundlekit.yaml without knowing the
// Go constants.
const (
	LoaderNone    = ""
	LoaderJS      = "js"
	LoaderJSX     = "jsx"
	LoaderTS      = "ts"
	LoaderTSX     = "tsx"
	LoaderCSS     = "css"
	LoaderJSON    = "json"
	LoaderText    = "text"
	LoaderFile    = "file"
	LoaderDataURL = "dataurl"
	LoaderCopy    = "copy"
	LoaderBinary  = "binary"
	LoaderBase64  = "base64"
	LoaderEmpty   = "empty"
)

var validLoaders = map[string]bool{
	LoaderJS: true, LoaderJSX: true, LoaderTS: true, LoaderTSX: true,
	LoaderCSS: true, LoaderJSON: true, LoaderText: true, LoaderFile: true,
	LoaderDataURL: true, LoaderCopy: true, LoaderBinary: true, LoaderBase64: true,
	LoaderEmpty: true,
}

// builtinTransforms maps the loader identifiers commonly found in webpack
// configurations to the engine loader that produces an equivalent module.
// Style injection and preprocessing steps collapse onto the css loader.
var builtinTransforms = map[string]string{
	"style-loader":   LoaderCSS,
	"css-loader":     LoaderCSS,
	"sass-loader":    LoaderCSS,
	"less-loader":    LoaderCSS,
	"postcss-loader": LoaderCSS,
	"babel-loader":   LoaderJS,
	"ts-loader":      LoaderTS,
	"esbuild-loader": LoaderJS,
	"raw-loader":     LoaderText,
	"file-loader":    LoaderFile,
	"url-loader":     LoaderDataURL,
	"json-loader":    LoaderJSON,
}

// Asset module types and the loader each one implies.
const (
	AssetResource = "asset/resource"
	AssetInline   = "asset/inline"
	AssetSource   = "asset/source"
	Asset         = "asset"
)

var assetTypes = map[string]string{
	AssetResource: LoaderFile,
	AssetInline:   LoaderDataURL,
	AssetSource:   LoaderText,
	Asset:         LoaderFile,
}

// Definition declares a custom transform identifier or overrides a built-in.
type Definition struct {
	Name   string `yaml:"name"`
	Loader string `yaml:"loader"`
}

// Registry resolves transform identifiers to engine loaders.
type Registry struct {
	definitions map[string]string
}

// NewRegistry creates a Registry with built-in definitions and optional custom overrides.
func NewRegistry(customDefs []Definition) *Registry {
	defs := make(map[string]string, len(builtinTransforms)+len(customDefs))
	for name, loader := range builtinTransforms {
		defs[name] = loader
	}
	for _, d := range customDefs {
		defs[d.Name] = d.Loader
	}
	return &Registry{definitions: defs}
}

// Resolve returns the engine loader for a transform identifier.
func (r *Registry) Resolve(name string) (string, error) {
	loader, ok := r.definitions[name]
	if !ok {
		return "", fmt.Errorf("unknown transform '%s' — declare it in loaderDefinitions: [{name: %s, loader: js}]", name, name)
	}
	return loader, nil
}

// Has reports whether name is a registered transform identifier.
func (r *Registry) Has(name string) bool {
	_, ok := r.definitions[name]
	return ok
}

// Effective returns the loader that a chain of transform identifiers
// produces. Chains run right to left, so the leftmost step that names a
// concrete loader decides the module type.
func (r *Registry) Effective(chain []string) (string, error) {
	for _, name := range chain {
		loader, err := r.Resolve(name)
		if err != nil {
			return "", err
		}
		if loader != LoaderNone {
			return loader, nil
		}
	}
	return LoaderNone, nil
}

// Known returns all registered identifiers in sorted order.
func (r *Registry) Known() []string {
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCustom returns whether an identifier comes from a custom definition.
func (r *Registry) IsCustom(name string) bool {
	_, isBuiltin := builtinTransforms[name]
	_, isDefined := r.definitions[name]
	return isDefined && !isBuiltin
}

// AssetLoader returns the loader for an asset module type.
func AssetLoader(assetType string) (string, bool) {
	loader, ok := assetTypes[assetType]
	return loader, ok
}

// ValidLoader reports whether name is a loader the engine understands.
func ValidLoader(name string) bool {
	return validLoaders[name]
}
