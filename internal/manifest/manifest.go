package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
)

// New hashes the given files under outDir and returns a manifest for them.
// Every file referenced by an entry is hashed even if absent from files.
func New(outDir string, entries map[string]Entry, files []string) (*Manifest, error) {
	m := &Manifest{
		Version: Version,
		Entries: make(map[string]Entry, len(entries)),
		Files:   make(map[string]FileHash),
	}

	all := append([]string(nil), files...)
	for name, e := range entries {
		m.Entries[name] = e
		all = append(all, e.Scripts...)
		all = append(all, e.Styles...)
	}

	for _, rel := range all {
		rel = filepath.ToSlash(rel)
		if _, done := m.Files[rel]; done {
			continue
		}
		data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", rel, err)
		}
		m.Files[rel] = FileHash{SHA256: sha256Hex(data), Bytes: int64(len(data))}
	}

	return m, nil
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if errs := Validate(&m); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &m, nil
}

// Marshal encodes a manifest as indented JSON.
func Marshal(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes a manifest atomically.
func Save(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Manifest for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(m *Manifest) []string {
	var errs []string

	if m.Version != Version {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version %d is supported", m.Version, Version))
	}

	names := make([]string, 0, len(m.Entries))
	for name := range m.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e := m.Entries[name]
		for _, f := range append(append([]string(nil), e.Scripts...), e.Styles...) {
			if _, ok := m.Files[f]; !ok {
				errs = append(errs, fmt.Sprintf("entry '%s': file '%s' has no hash", name, f))
			}
		}
	}

	for path, fh := range m.Files {
		if len(fh.SHA256) != sha256.Size*2 {
			errs = append(errs, fmt.Sprintf("file '%s': malformed sha256 %q", path, fh.SHA256))
		}
	}

	return errs
}

// Check verifies the files under outDir against the manifest.
// Returns Clean=true if everything matches.
func Check(outDir string, m *Manifest) (*CheckResult, error) {
	result := &CheckResult{Clean: true}

	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		fh := m.Files[rel]
		content, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
		if err != nil {
			if os.IsNotExist(err) {
				result.Missing = append(result.Missing, rel)
				result.Clean = false
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}

		actual := sha256Hex(content)
		if actual != fh.SHA256 {
			result.Drifted = append(result.Drifted, DriftEntry{
				Path:     rel,
				Expected: fh.SHA256,
				Actual:   actual,
			})
			result.Clean = false
		}
	}

	return result, nil
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
