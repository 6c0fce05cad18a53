package postbuild

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/bianoble/bundlekit/internal/sandbox"
	"github.com/rs/zerolog"
)

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
</body>
</html>
`

const liveReloadScript = `<script>new EventSource(%q).addEventListener("change", () => location.reload());</script>`

// PageData is passed to HTML templates.
type PageData struct {
	Title      string
	Scripts    []string
	Styles     []string
	LiveReload string
}

// HTML renders a page that loads every entry's bundles.
type HTML struct {
	Title    string
	Filename string
	// Template is an html/template file; empty uses a minimal page.
	Template string
	// Inject inserts script and stylesheet tags before </head>.
	Inject bool
	Logger zerolog.Logger
}

func (h *HTML) Name() string { return "html" }

func (h *HTML) Run(_ context.Context, result *engine.Result) error {
	tmpl, err := h.parse()
	if err != nil {
		return err
	}

	data := pageData(result, h.Title)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering %s: %w", h.Filename, err)
	}

	page := buf.String()
	if h.Inject {
		page = injectHead(page, assetTags(data))
	}
	if data.LiveReload != "" {
		page = injectHead(page, fmt.Sprintf(liveReloadScript, data.LiveReload)+"\n")
	}

	if err := sandbox.SafeWrite(result.Config.Output.Path, h.Filename, []byte(page), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", h.Filename, err)
	}
	result.AddFile(h.Filename)

	h.Logger.Debug().Str("file", h.Filename).Msg("Wrote HTML page")
	return nil
}

func (h *HTML) parse() (*template.Template, error) {
	funcs := template.FuncMap{
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
	}
	if h.Template == "" {
		return template.New("default").Funcs(funcs).Parse(defaultTemplate)
	}
	tmpl, err := template.New(filepath.Base(h.Template)).Funcs(funcs).ParseFiles(h.Template)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return tmpl, nil
}

// pageData collects the bundles of every entry in entry-name order,
// prefixed with the public path.
func pageData(result *engine.Result, title string) PageData {
	data := PageData{Title: title, LiveReload: result.LiveReload}

	names := make([]string, 0, len(result.Entries))
	for name := range result.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	publicPath := result.Config.Output.PublicPath
	for _, name := range names {
		e := result.Entries[name]
		for _, f := range e.Scripts {
			if !seen[f] {
				seen[f] = true
				data.Scripts = append(data.Scripts, AssetURL(publicPath, f))
			}
		}
		for _, f := range e.Styles {
			if !seen[f] {
				seen[f] = true
				data.Styles = append(data.Styles, AssetURL(publicPath, f))
			}
		}
	}
	return data
}

// AssetURL joins a public path and an output-relative file.
func AssetURL(publicPath, file string) string {
	if publicPath == "" {
		return file
	}
	return strings.TrimSuffix(publicPath, "/") + "/" + strings.TrimPrefix(file, "/")
}

func assetTags(data PageData) string {
	var b strings.Builder
	for _, href := range data.Styles {
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s\">\n", template.HTMLEscapeString(href))
	}
	for _, src := range data.Scripts {
		fmt.Fprintf(&b, "<script defer src=\"%s\"></script>\n", template.HTMLEscapeString(src))
	}
	return b.String()
}

// injectHead inserts tags before </head>, falling back to </body> and then
// the end of the page.
func injectHead(page, tags string) string {
	if tags == "" {
		return page
	}
	lower := strings.ToLower(page)
	for _, marker := range []string{"</head>", "</body>"} {
		if i := strings.LastIndex(lower, marker); i >= 0 {
			return page[:i] + tags + page[i:]
		}
	}
	return page + tags
}
