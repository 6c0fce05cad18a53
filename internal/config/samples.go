package config

import (
	"path"
	"regexp/syntax"
	"sort"
	"strings"
)

// maxSamples bounds the strings generated per pattern. Alternations of
// extensions rarely exceed a dozen, so this keeps products of alternations
// from exploding without losing realistic coverage.
const maxSamples = 32

// maxClassRunes is how many runes of a character class are tried.
const maxClassRunes = 4

// pathPrefixes turn an extension-like sample into a plausible file path.
var pathPrefixes = []string{"", "x", "src/x", "src/components/x"}

// SampleFiles returns file paths that the rule is known to match. They are built
// from strings generated over the test pattern's syntax tree, so the rule
// can be checked against every other rule without walking the filesystem.
func (r Rule) SampleFiles() []string {
	if r.Test.IsZero() {
		return nil
	}
	re, err := syntax.Parse(r.Test.Regexp().String(), syntax.Perl)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var matched []string
	for _, s := range samples(re.Simplify()) {
		for _, prefix := range pathPrefixes {
			candidate := prefix + s
			if candidate == "" || seen[candidate] {
				continue
			}
			seen[candidate] = true
			if r.Matches(candidate) {
				matched = append(matched, candidate)
			}
		}
	}
	sort.Strings(matched)
	return matched
}

// combinedFiles places the file names sampled for one rule into the
// directories sampled for the other, in both directions. Rules scoped to a
// directory (`^src/app/`) and rules scoped to a file type (`\.js$`) only
// share combined paths such as src/app/a.js.
func combinedFiles(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	join := func(dirs, files []string) {
		for _, dir := range fileDirs(dirs) {
			for _, base := range fileBases(files) {
				candidate := dir + base
				if !seen[candidate] {
					seen[candidate] = true
					out = append(out, candidate)
				}
			}
		}
	}
	join(a, b)
	join(b, a)
	sort.Strings(out)
	return out
}

// fileDirs returns the distinct directory parts of paths, each ending in
// a slash. A path that ends in a slash is itself a directory.
func fileDirs(files []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range files {
		dir := p
		if !strings.HasSuffix(p, "/") {
			dir = path.Dir(p) + "/"
		}
		if dir == "./" || dir == "/" || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

// fileBases returns the distinct base names of paths.
func fileBases(files []string) []string {
	seen := make(map[string]bool)
	var bases []string
	for _, p := range files {
		if strings.HasSuffix(p, "/") {
			continue
		}
		base := path.Base(p)
		if seen[base] {
			continue
		}
		seen[base] = true
		bases = append(bases, base)
	}
	return bases
}

func samples(re *syntax.Regexp) []string {
	switch re.Op {
	case syntax.OpNoMatch:
		return nil
	case syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return []string{""}
	case syntax.OpLiteral:
		return []string{string(re.Rune)}
	case syntax.OpCharClass:
		return classSamples(re.Rune)
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		return []string{"a"}
	case syntax.OpCapture:
		return samples(re.Sub[0])
	case syntax.OpStar, syntax.OpQuest:
		return union([]string{""}, samples(re.Sub[0]))
	case syntax.OpPlus:
		return samples(re.Sub[0])
	case syntax.OpRepeat:
		sub := samples(re.Sub[0])
		out := []string{""}
		for i := 0; i < re.Min; i++ {
			out = product(out, sub)
		}
		if re.Min == 0 {
			out = union(out, sub)
		}
		return out
	case syntax.OpConcat:
		out := []string{""}
		for _, sub := range re.Sub {
			out = product(out, samples(sub))
			if len(out) == 0 {
				return nil
			}
		}
		return out
	case syntax.OpAlternate:
		var out []string
		for _, sub := range re.Sub {
			out = union(out, samples(sub))
		}
		return out
	}
	return nil
}

func classSamples(ranges []rune) []string {
	var out []string
	for i := 0; i+1 < len(ranges) && len(out) < maxClassRunes; i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		for r := lo; r <= hi && len(out) < maxClassRunes; r++ {
			// Skip control characters so samples stay printable paths.
			if r < 0x20 {
				continue
			}
			out = append(out, string(r))
		}
	}
	return out
}

func product(prefixes, suffixes []string) []string {
	out := make([]string, 0, len(prefixes)*len(suffixes))
	for _, p := range prefixes {
		for _, s := range suffixes {
			if len(out) >= maxSamples {
				return out
			}
			out = append(out, p+s)
		}
	}
	return out
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, s := range b {
		if len(out) >= maxSamples {
			break
		}
		out = append(out, s)
	}
	return out
}
