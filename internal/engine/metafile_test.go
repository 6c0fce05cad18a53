package engine

import (
	"testing"

	"github.com/bianoble/bundlekit/internal/manifest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetafile = `{
  "inputs": {
    "src/index.js": {"bytes": 120},
    "src/admin.js": {"bytes": 80}
  },
  "outputs": {
    "dist/main.ABC123.js": {
      "bytes": 900,
      "entryPoint": "src/index.js",
      "cssBundle": "dist/main.DEF456.css",
      "imports": [
        {"path": "dist/chunks/shared-XYZ.js", "kind": "import-statement"},
        {"path": "dist/chunks/lazy-QQQ.js", "kind": "dynamic-import"},
        {"path": "https://cdn.example.com/lib.js", "kind": "import-statement", "external": true}
      ]
    },
    "dist/main.ABC123.js.map": {"bytes": 2000, "entryPoint": "src/index.js"},
    "dist/admin.GHI789.js": {
      "bytes": 300,
      "entryPoint": "src/admin.js",
      "imports": [{"path": "dist/chunks/shared-XYZ.js", "kind": "import-statement"}]
    },
    "dist/chunks/shared-XYZ.js": {
      "bytes": 50,
      "imports": [{"path": "dist/chunks/util-UUU.js", "kind": "import-statement"}]
    },
    "dist/chunks/util-UUU.js": {"bytes": 10, "imports": []},
    "dist/chunks/lazy-QQQ.js": {"bytes": 10, "imports": []},
    "dist/main.DEF456.css": {"bytes": 40, "imports": []}
  }
}`

func TestParseMetafileInvalid(t *testing.T) {
	_, err := ParseMetafile("{not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing metafile")
}

func TestEntryFiles(t *testing.T) {
	m, err := ParseMetafile(sampleMetafile)
	require.NoError(t, err)

	entry, ok := m.EntryFiles("/proj", "/proj/dist", "/proj/src/index.js")
	require.True(t, ok)

	want := manifest.Entry{
		Scripts: []string{"main.ABC123.js", "chunks/shared-XYZ.js", "chunks/util-UUU.js"},
		Styles:  []string{"main.DEF456.css"},
	}
	if diff := cmp.Diff(want, entry); diff != "" {
		t.Errorf("EntryFiles mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryFilesUnknownInput(t *testing.T) {
	m, err := ParseMetafile(sampleMetafile)
	require.NoError(t, err)

	_, ok := m.EntryFiles("/proj", "/proj/dist", "/proj/src/other.js")
	assert.False(t, ok)
}

func TestOutputFiles(t *testing.T) {
	m, err := ParseMetafile(sampleMetafile)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"admin.GHI789.js",
		"chunks/lazy-QQQ.js",
		"chunks/shared-XYZ.js",
		"chunks/util-UUU.js",
		"main.ABC123.js",
		"main.DEF456.css",
	}, m.OutputFiles("/proj", "/proj/dist"))
}
