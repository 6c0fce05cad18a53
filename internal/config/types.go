package config

import (
	"fmt"

	"github.com/bianoble/bundlekit/internal/loaders"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"
)

// Mode selects optimization defaults for a build.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Devtool selects the source-map strategy.
type Devtool string

const (
	DevtoolNone            Devtool = "none"
	DevtoolSourceMap       Devtool = "source-map"
	DevtoolInlineSourceMap Devtool = "inline-source-map"
	DevtoolHiddenSourceMap Devtool = "hidden-source-map"
)

// Config represents the bundlekit.yaml build configuration.
type Config struct {
	Mode              Mode                 `yaml:"mode,omitempty"`
	Context           string               `yaml:"context,omitempty"`
	Entry             map[string]string    `yaml:"entry,omitempty"`
	Output            Output               `yaml:"output,omitempty"`
	Devtool           Devtool              `yaml:"devtool,omitempty"`
	DevServer         DevServer            `yaml:"devServer,omitempty"`
	Module            Module               `yaml:"module,omitempty"`
	Plugins           []Plugin             `yaml:"plugins,omitempty"`
	LoaderDefinitions []loaders.Definition `yaml:"loaderDefinitions,omitempty"`
}

// Output controls where bundles are emitted and how they are named.
type Output struct {
	Path                string `yaml:"path,omitempty"`
	Filename            string `yaml:"filename,omitempty"`
	Clean               *bool  `yaml:"clean,omitempty"`
	AssetModuleFilename string `yaml:"assetModuleFilename,omitempty"`
	PublicPath          string `yaml:"publicPath,omitempty"`
}

// DevServer configures the local development server.
type DevServer struct {
	Static             Static `yaml:"static,omitempty"`
	Host               string `yaml:"host,omitempty"`
	Port               int    `yaml:"port,omitempty"`
	Open               *bool  `yaml:"open,omitempty"`
	Hot                *bool  `yaml:"hot,omitempty"`
	Compress           *bool  `yaml:"compress,omitempty"`
	HistoryAPIFallback *bool  `yaml:"historyApiFallback,omitempty"`
}

// Static names the directory served as-is by the dev server.
type Static struct {
	Directory string `yaml:"directory,omitempty"`
}

// Module holds the file transformation rules.
type Module struct {
	Rules []Rule `yaml:"rules,omitempty"`
}

// Rule maps files matching Test (and not Exclude) to a transform chain or
// an asset module type.
type Rule struct {
	Test     Pattern  `yaml:"test"`
	Exclude  *Pattern `yaml:"exclude,omitempty"`
	Use      Chain    `yaml:"use,omitempty"`
	Type     string   `yaml:"type,omitempty"`
	Priority int      `yaml:"priority,omitempty"`
}

// Matches reports whether the rule applies to path.
func (r Rule) Matches(path string) bool {
	if !r.Test.MatchString(path) {
		return false
	}
	if r.Exclude != nil && r.Exclude.MatchString(path) {
		return false
	}
	return true
}

// Compatible reports whether two rules transform a file the same way.
func (r Rule) Compatible(other Rule) bool {
	return r.Type == other.Type && r.Use.Equal(other.Use)
}

// Chain is an ordered sequence of transform steps. Steps run right to left.
type Chain []Step

// Loaders returns the step identifiers in declared order.
func (c Chain) Loaders() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Loader
	}
	return names
}

// Equal reports whether two chains name the same steps with the same options.
func (c Chain) Equal(other Chain) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i].Loader != other[i].Loader {
			return false
		}
		if !cmp.Equal(c[i].Options, other[i].Options, cmpopts.EquateEmpty()) {
			return false
		}
	}
	return true
}

// UnmarshalYAML accepts a single step or a list of steps.
func (c *Chain) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode, yaml.MappingNode:
		var s Step
		if err := node.Decode(&s); err != nil {
			return err
		}
		*c = Chain{s}
		return nil
	case yaml.SequenceNode:
		steps := make([]Step, 0, len(node.Content))
		for _, n := range node.Content {
			var s Step
			if err := n.Decode(&s); err != nil {
				return err
			}
			steps = append(steps, s)
		}
		*c = steps
		return nil
	default:
		return fmt.Errorf("line %d: 'use' must be a loader name, a loader mapping, or a list of them", node.Line)
	}
}

// Step is one transform in a chain.
type Step struct {
	Loader  string         `yaml:"loader"`
	Options map[string]any `yaml:"options,omitempty"`
}

// UnmarshalYAML accepts either "name" or {loader: name, options: {...}}.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Loader = node.Value
		s.Options = nil
		return nil
	}
	type plain Step
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Step(p)
	return nil
}

// MarshalYAML writes steps without options in their short form.
func (s Step) MarshalYAML() (any, error) {
	if len(s.Options) == 0 {
		return s.Loader, nil
	}
	type plain Step
	return plain(s), nil
}

// Plugin kinds.
const (
	PluginHTML           = "html"
	PluginBundleAnalyzer = "bundle-analyzer"
	PluginManifest       = "manifest"
)

// Plugin describes a post-build action and its options.
type Plugin struct {
	Kind    string         `yaml:"kind"`
	Options map[string]any `yaml:"options,omitempty"`
}

// String returns the option value for key, or "" when unset or not a string.
func (p Plugin) String(key string) string {
	v, _ := p.Options[key].(string)
	return v
}

// Bool returns the option value for key, or def when unset or not a bool.
func (p Plugin) Bool(key string, def bool) bool {
	v, ok := p.Options[key].(bool)
	if !ok {
		return def
	}
	return v
}

// BoolValue dereferences a normalized flag. Unset flags read as false.
func BoolValue(b *bool) bool {
	return b != nil && *b
}

func boolPtr(b bool) *bool {
	return &b
}
