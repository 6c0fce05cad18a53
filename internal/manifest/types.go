package manifest

// Version is the manifest format version written by Save.
const Version = 1

// Manifest records what a build emitted: the files each entry point needs
// and the content hash of every emitted file. Paths are relative to the
// output directory and use forward slashes.
type Manifest struct {
	Version int                 `json:"version"`
	Entries map[string]Entry    `json:"entries"`
	Files   map[string]FileHash `json:"files"`
}

// Entry lists the emitted files for one entry point, in load order.
type Entry struct {
	Scripts []string `json:"scripts,omitempty"`
	Styles  []string `json:"styles,omitempty"`
}

// FileHash records the content hash and size of a single file.
type FileHash struct {
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// DriftEntry represents a file whose content no longer matches the manifest.
type DriftEntry struct {
	Path     string
	Expected string
	Actual   string
}

// CheckResult holds the outcome of a check operation.
type CheckResult struct {
	Clean   bool
	Drifted []DriftEntry
	Missing []string
}
