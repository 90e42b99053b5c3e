package httpserver

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
}

func newTestServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "index.html", "home")
	writeFile(t, root, "recipes/index.html", "listing")
	writeFile(t, root, "recipes/bread/bread.html", "bread page")
	writeFile(t, root, "recipes/bread/photo.0123.jpg", "jpg")
	writeFile(t, root, "css/main.abcd.css", "body{}")
	writeFile(t, root, "footers/about.html", "about")

	cfg := &config.Config{
		OutputDirectory: root,
		PostTypes:       []config.PostType{{Directory: "recipes", DisplayName: "Recipes"}},
		Server:          config.ServerConfig{CacheMaxAge: 600, PageMaxAge: 30, MetricsPath: "/metrics"},
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return New(cfg, opts), root
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestPostPathRewrite(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec := get(t, s.Handler(), "/recipes/bread")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "bread page", rec.Body.String())
	require.Equal(t, "public, max-age=30, must-revalidate", rec.Header().Get("Cache-Control"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestExtensionlessFooterServesHTML(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec := get(t, s.Handler(), "/footers/about")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "about", rec.Body.String())
	require.Equal(t, noCacheControl, rec.Header().Get("Cache-Control"))
}

func TestCacheControl(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	h := s.Handler()
	page := "public, max-age=30, must-revalidate"
	asset := "public, max-age=600, immutable"
	for target, want := range map[string]string{
		"/":                             noCacheControl,
		"/recipes/":                     noCacheControl,
		"/recipes/bread":                page,
		"/recipes/bread/bread.html":     page,
		"/recipes/bread/photo.0123.jpg": asset,
		"/css/main.abcd.css":            asset,
		"/footers/about.html":           noCacheControl,
	} {
		rec := get(t, h, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		require.Equal(t, want, rec.Header().Get("Cache-Control"), target)
	}
}

func TestPostPath(t *testing.T) {
	types := map[string]bool{"recipes": true}
	require.True(t, PostPath("/recipes/bread", types))
	require.False(t, PostPath("/recipes/bread/", types))
	require.False(t, PostPath("/recipes/", types))
	require.False(t, PostPath("/recipes/bread.html", types))
	require.False(t, PostPath("/blog/hello", types))
	require.False(t, PostPath("/recipes/bread/photo.jpg", types))
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "up 1\n") })
	s, _ := newTestServer(t, Options{Metrics: metrics})
	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, "up 1\n", rec.Body.String())
}

func TestServeAndStop(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, s.Serve(ln))

	resp, err := http.Get("http://" + s.Addr().String() + "/recipes/bread")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "bread page", string(body))

	require.NoError(t, s.Stop(t.Context()))
}
