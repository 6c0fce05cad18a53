package postbuild

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/bianoble/bundlekit/internal/manifest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metafileJSON = `{
  "inputs": {"src/index.js": {"bytes": 40, "imports": []}},
  "outputs": {
    "dist/app.js": {
      "bytes": 40,
      "entryPoint": "src/index.js",
      "inputs": {"src/index.js": {"bytesInOutput": 40}},
      "imports": [],
      "exports": []
    }
  }
}`

// buildResult writes the given output files and returns a Result for them.
func buildResult(t *testing.T, files map[string]string, entries map[string]manifest.Entry) *engine.Result {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "dist")
	for name, content := range files {
		path := filepath.Join(out, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	var names []string
	for name := range files {
		names = append(names, name)
	}
	r := &engine.Result{
		Config: &config.Config{
			Context: dir,
			Output:  config.Output{Path: out, PublicPath: "/"},
		},
		RawMetafile: metafileJSON,
		Entries:     entries,
	}
	for _, n := range names {
		r.AddFile(n)
	}
	return r
}

func defaultResult(t *testing.T) *engine.Result {
	return buildResult(t,
		map[string]string{"app.js": "console.log(1)", "app.css": "body{}"},
		map[string]manifest.Entry{"app": {Scripts: []string{"app.js"}, Styles: []string{"app.css"}}},
	)
}

func readOutput(t *testing.T, r *engine.Result, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.Config.Output.Path, name))
	require.NoError(t, err)
	return string(data)
}

func TestHTMLDefaultTemplate(t *testing.T) {
	r := defaultResult(t)
	h := &HTML{Title: "My App", Filename: "index.html", Inject: true, Logger: zerolog.Nop()}

	require.NoError(t, h.Run(context.Background(), r))

	page := readOutput(t, r, "index.html")
	assert.Contains(t, page, "<title>My App</title>")
	assert.Contains(t, page, `<script defer src="/app.js"></script>`)
	assert.Contains(t, page, `<link rel="stylesheet" href="/app.css">`)
	assert.Less(t, strings.Index(page, "/app.js"), strings.Index(page, "</head>"))
	assert.Contains(t, r.Files, "index.html")
	assert.NotContains(t, page, "EventSource")
}

func TestHTMLCustomTemplate(t *testing.T) {
	r := defaultResult(t)
	tmpl := filepath.Join(r.Config.Context, "template.html")
	require.NoError(t, os.WriteFile(tmpl, []byte(
		"<html><head><title>{{.Title}}</title></head><body>{{range .Scripts}}<p>{{.}}</p>{{end}}</body></html>"), 0644))

	h := &HTML{Title: "Webpack App", Filename: "pages/home.html", Template: tmpl, Inject: false, Logger: zerolog.Nop()}
	require.NoError(t, h.Run(context.Background(), r))

	page := readOutput(t, r, "pages/home.html")
	assert.Contains(t, page, "<title>Webpack App</title>")
	assert.Contains(t, page, "<p>/app.js</p>")
	assert.NotContains(t, page, "<script", "inject disabled")
}

func TestHTMLLiveReload(t *testing.T) {
	r := defaultResult(t)
	r.LiveReload = "/__bundlekit/events"

	h := &HTML{Title: "x", Filename: "index.html", Logger: zerolog.Nop()}
	require.NoError(t, h.Run(context.Background(), r))

	page := readOutput(t, r, "index.html")
	assert.Contains(t, page, `new EventSource("/__bundlekit/events")`)
}

func TestHTMLTemplateError(t *testing.T) {
	r := defaultResult(t)
	h := &HTML{Filename: "index.html", Template: filepath.Join(r.Config.Context, "missing.html")}
	err := h.Run(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing template")
}

func TestAssetURL(t *testing.T) {
	assert.Equal(t, "/app.js", AssetURL("/", "app.js"))
	assert.Equal(t, "/static/app.js", AssetURL("/static/", "app.js"))
	assert.Equal(t, "https://cdn.example.com/app.js", AssetURL("https://cdn.example.com", "app.js"))
	assert.Equal(t, "app.js", AssetURL("", "app.js"))
}

func TestInjectHead(t *testing.T) {
	assert.Equal(t, "<head>X</head>", injectHead("<head></head>", "X"))
	assert.Equal(t, "<body>X</BODY>", injectHead("<body></BODY>", "X"))
	assert.Equal(t, "plainX", injectHead("plain", "X"))
	assert.Equal(t, "plain", injectHead("plain", ""))
}

func TestAnalyzerStatic(t *testing.T) {
	r := defaultResult(t)
	a := &Analyzer{Mode: AnalyzerStatic, ReportFilename: "report.txt", Logger: zerolog.Nop()}

	require.NoError(t, a.Run(context.Background(), r))
	assert.Contains(t, readOutput(t, r, "report.txt"), "dist/app.js")
	assert.Contains(t, r.Files, "report.txt")
}

func TestAnalyzerLog(t *testing.T) {
	r := defaultResult(t)
	var buf bytes.Buffer
	a := &Analyzer{Mode: AnalyzerLog, Out: &buf, Logger: zerolog.Nop()}

	require.NoError(t, a.Run(context.Background(), r))
	assert.Contains(t, buf.String(), "dist/app.js")
	assert.NoFileExists(t, filepath.Join(r.Config.Output.Path, "report.txt"))
}

func TestAnalyzerDisabled(t *testing.T) {
	r := defaultResult(t)
	a := &Analyzer{Mode: AnalyzerDisabled}
	require.NoError(t, a.Run(context.Background(), r))
}

func TestManifestAction(t *testing.T) {
	r := defaultResult(t)
	m := &Manifest{Filename: "manifest.json", Logger: zerolog.Nop()}

	require.NoError(t, m.Run(context.Background(), r))

	man, err := manifest.Load(filepath.Join(r.Config.Output.Path, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"app.js"}, man.Entries["app"].Scripts)
	assert.Contains(t, man.Files, "app.js")
	assert.Contains(t, man.Files, "app.css")
	assert.NotContains(t, man.Files, "manifest.json")

	check, err := manifest.Check(r.Config.Output.Path, man)
	require.NoError(t, err)
	assert.True(t, check.Clean)
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src/index.js"), []byte(""), 0644))

	cfg, err := config.Parse([]byte(`
entry: {app: src/index.js}
plugins:
  - kind: html
    options: {title: Demo}
  - kind: bundle-analyzer
    options: {analyzerMode: log}
  - kind: manifest
`), config.LoadOptions{BaseDir: dir})
	require.NoError(t, err)

	actions, err := FromConfig(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	require.Len(t, actions, 3)

	html := actions[0].(*HTML)
	assert.Equal(t, "Demo", html.Title)
	assert.Equal(t, config.DefaultHTMLFilename, html.Filename)
	assert.True(t, html.Inject)
	assert.Equal(t, AnalyzerLog, actions[1].(*Analyzer).Mode)
	assert.Equal(t, config.DefaultManifestFilename, actions[2].(*Manifest).Filename)
}

func TestFromConfigUnknownKind(t *testing.T) {
	cfg := &config.Config{Plugins: []config.Plugin{{Kind: "mystery"}}}
	_, err := FromConfig(cfg, zerolog.Nop(), nil)
	var unknown *config.UnknownPluginError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "mystery", unknown.Kind)
}
