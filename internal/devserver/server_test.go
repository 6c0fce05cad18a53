package devserver

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/bianoble/bundlekit/internal/postbuild"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

// staticServer returns a server over a directory holding index.html and a
// large script.
func staticServer(t *testing.T, ds config.DevServer) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>index</html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte(strings.Repeat("console.log('hello');\n", 200)), 0644))

	ds.Static.Directory = dir
	cfg := &config.Config{Output: config.Output{Path: dir}, DevServer: ds}
	return New(&engine.Engine{Config: cfg, Logger: zerolog.Nop()}, zerolog.Nop()), dir
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStaticFiles(t *testing.T) {
	s, _ := staticServer(t, config.DevServer{})
	h := s.Handler()

	rec := get(t, h, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "index")

	rec = get(t, h, "/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = get(t, h, "/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryAPIFallback(t *testing.T) {
	html := map[string]string{"Accept": "text/html,application/xhtml+xml"}

	s, _ := staticServer(t, config.DevServer{HistoryAPIFallback: boolPtr(true)})
	h := s.Handler()

	rec := get(t, h, "/users/42", html)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "index")

	rec = get(t, h, "/missing.js", html)
	assert.Equal(t, http.StatusNotFound, rec.Code, "assets never fall back")

	rec = get(t, h, "/users/42", map[string]string{"Accept": "application/json"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "non-HTML requests never fall back")

	s, _ = staticServer(t, config.DevServer{HistoryAPIFallback: boolPtr(false)})
	rec = get(t, s.Handler(), "/users/42", html)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompression(t *testing.T) {
	gz := map[string]string{"Accept-Encoding": "gzip"}

	s, _ := staticServer(t, config.DevServer{Compress: boolPtr(true)})
	rec := get(t, s.Handler(), "/app.js", gz)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), "console.log('hello');")

	s, _ = staticServer(t, config.DevServer{Compress: boolPtr(false)})
	rec = get(t, s.Handler(), "/app.js", gz)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestListenPortInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = taken.Close() }()
	port := taken.Addr().(*net.TCPAddr).Port

	s, _ := staticServer(t, config.DevServer{Host: "127.0.0.1", Port: port})
	_, err = s.Listen()

	var portErr *config.InvalidPortError
	require.ErrorAs(t, err, &portErr)
	assert.Equal(t, port, portErr.Port)
	assert.Contains(t, err.Error(), "cannot bind")
}

func TestURL(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	s, _ := staticServer(t, config.DevServer{Host: "0.0.0.0"})
	assert.Equal(t, "http://localhost:"+strconv.Itoa(port)+"/", s.URL(ln))
}

func TestEventStream(t *testing.T) {
	s, _ := staticServer(t, config.DevServer{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+EventsPath, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	_, _ = reader.ReadString('\n')

	s.hub.broadcast(EventChange)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: change\n", line)
}

func TestServeBuildsAndServes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src/index.js"), []byte("console.log('served');\n"), 0644))

	cfg, err := config.Parse([]byte(`
mode: development
entry: {app: src/index.js}
devServer:
  host: 127.0.0.1
  hot: false
  open: true
plugins:
  - kind: html
    options: {title: Served}
`), config.LoadOptions{BaseDir: dir})
	require.NoError(t, err)

	actions, err := postbuild.FromConfig(cfg, zerolog.Nop(), io.Discard)
	require.NoError(t, err)

	s := New(engine.New(cfg, zerolog.Nop(), actions...), zerolog.Nop())
	opened := make(chan string, 1)
	s.Open = func(url string) error {
		opened <- url
		return nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	var url string
	select {
	case url = <-opened:
	case <-time.After(30 * time.Second):
		t.Fatal("browser was not opened")
	}

	resp, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "<title>Served</title>")
	assert.Contains(t, string(body), "app.")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeHotReload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	index := filepath.Join(dir, "src/index.js")
	tmpl := filepath.Join(dir, "src/template.html")
	require.NoError(t, os.WriteFile(index, []byte("console.log('first');\n"), 0644))
	require.NoError(t, os.WriteFile(tmpl, []byte("<html><head></head><body>T1</body></html>\n"), 0644))

	cfg, err := config.Parse([]byte(`
mode: development
entry: {app: src/index.js}
devServer:
  host: 127.0.0.1
  hot: true
  open: false
plugins:
  - kind: html
    options: {template: src/template.html}
`), config.LoadOptions{BaseDir: dir})
	require.NoError(t, err)

	actions, err := postbuild.FromConfig(cfg, zerolog.Nop(), io.Discard)
	require.NoError(t, err)
	s := New(engine.New(cfg, zerolog.Nop(), actions...), zerolog.Nop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := strings.TrimSuffix(s.URL(ln), "/")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	page := func() string {
		resp, err := http.Get(base + "/")
		if err != nil {
			return ""
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	var first string
	require.Eventually(t, func() bool {
		first = page()
		return strings.Contains(first, "EventSource") && strings.Contains(first, "T1")
	}, 30*time.Second, 50*time.Millisecond, "initial build was not served")
	assert.Contains(t, first, EventsPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+EventsPath, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			lines <- line
		}
	}()
	waitChange := func(what string) {
		t.Helper()
		timeout := time.After(30 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "event stream closed waiting for %s", what)
				if line == "event: change\n" {
					return
				}
			case <-timeout:
				t.Fatalf("no change event after %s", what)
			}
		}
	}

	// A source edit rebuilds through esbuild and rewrites the page with the
	// new bundle name.
	require.NoError(t, os.WriteFile(index, []byte("console.log('second edit');\n"), 0644))
	waitChange("source edit")
	require.Eventually(t, func() bool {
		p := page()
		return p != "" && p != first && strings.Contains(p, "T1")
	}, 30*time.Second, 50*time.Millisecond, "page not rebuilt after source edit")

	// A template edit is invisible to esbuild and only reruns the actions.
	require.NoError(t, os.WriteFile(tmpl, []byte("<html><head></head><body>T2</body></html>\n"), 0644))
	waitChange("template edit")
	require.Eventually(t, func() bool {
		return strings.Contains(page(), "T2")
	}, 30*time.Second, 50*time.Millisecond, "page not rerendered after template edit")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "open event streams must not block shutdown")
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
