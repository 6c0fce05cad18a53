package config

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pattern is a file-matching regular expression. It is written either as a
// bare expression (`\.scss$`) or as a slash literal with flags
// (`/\.(png|svg)$/i`). The only flags are i (case-insensitive) and m.
//
// Any pattern that starts with a slash and contains a later slash is read
// as a literal, so a path expression must not start with a bare slash:
// write `^/static/img` or `\/static\/img` instead of `/static/img`.
// Any other flag, g, u and y included, is an error.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// ParsePattern compiles a pattern from its textual form.
func ParsePattern(src string) (Pattern, error) {
	expr, err := translatePattern(src)
	if err != nil {
		return Pattern{}, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", src, err)
	}
	return Pattern{source: src, re: re}, nil
}

// MustPattern is like ParsePattern but panics on error.
func MustPattern(src string) Pattern {
	p, err := ParsePattern(src)
	if err != nil {
		panic(err)
	}
	return p
}

func translatePattern(src string) (string, error) {
	if len(src) < 2 || src[0] != '/' {
		return src, nil
	}
	end := strings.LastIndexByte(src, '/')
	if end == 0 {
		return src, nil
	}
	body, flags := src[1:end], src[end+1:]

	var prefix strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm':
			if strings.ContainsRune(prefix.String(), f) {
				return "", fmt.Errorf("invalid pattern %q: duplicate flag '%c'", src, f)
			}
			prefix.WriteRune(f)
		default:
			return "", fmt.Errorf("invalid pattern %q: unsupported flag '%c' (a path starting with '/' must be written as ^/...)", src, f)
		}
	}
	if prefix.Len() == 0 {
		return body, nil
	}
	return "(?" + prefix.String() + ")" + body, nil
}

// String returns the pattern as written.
func (p Pattern) String() string {
	return p.source
}

// IsZero reports whether the pattern is unset.
func (p Pattern) IsZero() bool {
	return p.re == nil
}

// MatchString reports whether s matches the pattern. An unset pattern matches nothing.
func (p Pattern) MatchString(s string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(s)
}

// Regexp returns the compiled expression.
func (p Pattern) Regexp() *regexp.Regexp {
	return p.re
}

// Equal compares patterns by their written form.
func (p Pattern) Equal(other Pattern) bool {
	return p.source == other.source
}

// UnmarshalYAML decodes and compiles a pattern from a YAML string.
func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: pattern must be a string", node.Line)
	}
	parsed, err := ParsePattern(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = parsed
	return nil
}

// MarshalYAML writes the pattern as written.
func (p Pattern) MarshalYAML() (any, error) {
	return p.source, nil
}
