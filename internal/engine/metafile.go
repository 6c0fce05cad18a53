package engine

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bianoble/bundlekit/internal/manifest"
)

// Metafile is the subset of esbuild's metafile JSON that bundlekit reads.
// Paths are relative to the build's working directory.
type Metafile struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes int `json:"bytes"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint,omitempty"`
	CSSBundle  string       `json:"cssBundle,omitempty"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

// ParseMetafile decodes esbuild's metafile JSON.
func ParseMetafile(raw string) (*Metafile, error) {
	var m Metafile
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parsing metafile: %w", err)
	}
	return &m, nil
}

// EntryFiles returns the files an entry point needs, in load order, relative
// to outDir. workDir is the directory metafile paths are relative to and
// input is the entry's absolute source path.
func (m *Metafile) EntryFiles(workDir, outDir, input string) (manifest.Entry, bool) {
	want, err := filepath.Rel(workDir, input)
	if err != nil {
		return manifest.Entry{}, false
	}
	want = filepath.ToSlash(want)

	// Output keys are visited in sorted order so results are stable.
	keys := make([]string, 0, len(m.Outputs))
	for k := range m.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		info := m.Outputs[key]
		if info.EntryPoint != want || strings.HasSuffix(key, ".map") {
			continue
		}

		var entry manifest.Entry
		visited := map[string]bool{key: true}
		entry.Scripts = append(entry.Scripts, m.relOutput(workDir, outDir, key))
		m.addDependencies(workDir, outDir, info, &entry, visited)

		if info.CSSBundle != "" {
			entry.Styles = append(entry.Styles, m.relOutput(workDir, outDir, info.CSSBundle))
		}
		return entry, true
	}

	return manifest.Entry{}, false
}

func (m *Metafile) addDependencies(workDir, outDir string, output OutputInfo, entry *manifest.Entry, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External || imp.Kind == "dynamic-import" || visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true
		entry.Scripts = append(entry.Scripts, m.relOutput(workDir, outDir, imp.Path))

		if chunk, ok := m.Outputs[imp.Path]; ok {
			m.addDependencies(workDir, outDir, chunk, entry, visited)
		}
	}
}

// OutputFiles lists every emitted file relative to outDir, excluding source maps.
func (m *Metafile) OutputFiles(workDir, outDir string) []string {
	files := make([]string, 0, len(m.Outputs))
	for key := range m.Outputs {
		if strings.HasSuffix(key, ".map") {
			continue
		}
		files = append(files, m.relOutput(workDir, outDir, key))
	}
	sort.Strings(files)
	return files
}

func (m *Metafile) relOutput(workDir, outDir, key string) string {
	abs := key
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(workDir, filepath.FromSlash(key))
	}
	rel, err := filepath.Rel(outDir, abs)
	if err != nil {
		return filepath.ToSlash(key)
	}
	return filepath.ToSlash(rel)
}
