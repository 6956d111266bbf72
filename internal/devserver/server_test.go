package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/bundlecfg/internal/assets"
	"github.com/wolfeidau/bundlecfg/internal/bundleconfig"
)

func newPipeline(t *testing.T) *assets.Pipeline {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	files := map[string]string{
		"node_modules/raf/polyfill.js": "window.__raf = true;\n",
		"src/app.ts":                   "import './app.css';\nconsole.log('app page', '" + strings.Repeat("padding ", 512) + "');\n",
		"src/app.css":                  "#root { margin: 0; }\n",
		"src/admin.ts":                 "console.log('admin page');\n",
	}
	for name, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}

	b, err := bundleconfig.New(dir)
	require.NoError(t, err)
	bundle, err := b.Build(&bundleconfig.Options{
		Input: bundleconfig.KeyedInput(
			bundleconfig.Entry{Name: "app", Path: "src/app.ts"},
			bundleconfig.Entry{Name: "admin", Path: "src/admin.ts"},
		),
		OutDir:           "dist",
		Tsconfig:         "tsconfig.json",
		SkipTypeChecking: true,
	})
	require.NoError(t, err)

	return assets.New(assets.DefaultConfig(dir), bundle)
}

func newServer(t *testing.T, cfg Config) (*Server, *assets.Pipeline) {
	t.Helper()
	p := newPipeline(t)
	s, err := New(cfg, p, zerolog.Nop())
	require.NoError(t, err)
	return s, p
}

func get(t *testing.T, h http.Handler, path string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServerBeforeBuild(t *testing.T) {
	s, _ := newServer(t, Config{})

	w := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServerPages(t *testing.T) {
	s, p := newServer(t, Config{Title: "Demo"})
	require.NoError(t, p.Build(context.Background()))
	h := s.Handler()

	t.Run("index renders first entry", func(t *testing.T) {
		w := get(t, h, "/")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "<title>Demo - app</title>")
		assert.Contains(t, body, `<script src="/app-bundle.js"></script>`)
		assert.Contains(t, body, `<link rel="stylesheet" href="/app-bundle.css">`)
		assert.Contains(t, body, `{"entries":["app","admin"],"entry":"app"}`)
	})

	t.Run("named entry", func(t *testing.T) {
		w := get(t, h, "/entries/admin")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `<script src="/admin-bundle.js"></script>`)
		assert.NotContains(t, w.Body.String(), `rel="stylesheet"`)
	})

	t.Run("unknown entry", func(t *testing.T) {
		w := get(t, h, "/entries/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stylesheets", func(t *testing.T) {
		w := get(t, h, "/app-bundle.css")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "margin: 0")
	})

	t.Run("bundle files", func(t *testing.T) {
		w := get(t, h, "/admin-bundle.js")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "admin page")
	})
}

func TestServerCompressesResponses(t *testing.T) {
	s, p := newServer(t, Config{})
	require.NoError(t, p.Build(context.Background()))

	w := get(t, s.Handler(), "/app-bundle.js", "Accept-Encoding", "gzip")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestServerCORS(t *testing.T) {
	s, p := newServer(t, Config{CORSOrigins: []string{"http://localhost:3000"}})
	require.NoError(t, p.Build(context.Background()))

	w := get(t, s.Handler(), "/app-bundle.js", "Origin", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(t, s.Handler(), "/app-bundle.js", "Origin", "http://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerStatus(t *testing.T) {
	s, _ := newServer(t, Config{})
	h := s.Handler()

	w := get(t, h, "/_status")
	require.Equal(t, http.StatusOK, w.Code)

	s.Rebuilt(errors.New("src/app.ts:1:1: boom"))
	w = get(t, h, "/_status")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var status Status
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &status))
	assert.False(t, status.OK)
	assert.Equal(t, "src/app.ts:1:1: boom", status.Error)
	assert.Equal(t, []string{"app", "admin"}, status.Entries)

	s.Rebuilt(nil)
	assert.True(t, s.Status().OK)
	assert.Empty(t, s.Status().Error)
}

func TestListenAndServeShutsDown(t *testing.T) {
	s, _ := newServer(t, Config{Host: "127.0.0.1", Port: 0})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "localhost:8080", Config{Host: "localhost", Port: 8080}.Addr())
	assert.Equal(t, ":3000", Config{Port: 3000}.Addr())
}
