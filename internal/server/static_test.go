package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStaticSite(t *testing.T) {
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	writeFile(t, filepath.Join(dist, "index.html"), "<html>app</html>")
	writeFile(t, filepath.Join(dist, "assets", "app.js"), "console.log('hi')")

	h := newTestGateway(Options{FrontendDir: dist})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}{
		{"existing file", "/assets/app.js", http.StatusOK, "console.log('hi')"},
		{"index", "/", http.StatusOK, "<html>app</html>"},
		{"client route", "/calendar/week", http.StatusOK, "<html>app</html>"},
		{"directory", "/assets", http.StatusOK, "<html>app</html>"},
		{"api is never the app", "/api/unknown", http.StatusNotFound, `{"detail":"Not Found"}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestStaticSite_Traversal(t *testing.T) {
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	writeFile(t, filepath.Join(dist, "index.html"), "<html>app</html>")
	writeFile(t, filepath.Join(root, "secret.txt"), "do not serve")

	site := newStaticSite(dist, "")
	for _, target := range []string{"/../secret.txt", "/assets/../../secret.txt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = target
		rec := httptest.NewRecorder()
		site.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "<html>app</html>", rec.Body.String(), target)
	}
}

func TestStaticSite_MissingIndex(t *testing.T) {
	h := newTestGateway(Options{FrontendDir: t.TempDir()})
	rec := do(h, http.MethodGet, "/anything", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticSite_NoBundle(t *testing.T) {
	rec := do(newTestGateway(Options{}), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detail(t, rec))
}

func TestFavicon(t *testing.T) {
	rec := do(newTestGateway(Options{}), http.MethodGet, "/favicon.ico", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	assert.Equal(t, defaultFavicon, rec.Body.Bytes())

	custom := filepath.Join(t.TempDir(), "favicon.png")
	writeFile(t, custom, "\x89PNG\r\n\x1a\nfake")
	rec = do(newTestGateway(Options{FaviconFile: custom}), http.MethodGet, "/favicon.ico", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = do(newTestGateway(Options{FaviconFile: filepath.Join(t.TempDir(), "missing.ico")}), http.MethodGet, "/favicon.ico", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultFavicon, rec.Body.Bytes())
}
