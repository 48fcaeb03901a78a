package server

import (
	"bytes"
	_ "embed"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

//go:embed assets/favicon.gif
var defaultFavicon []byte

// staticSite hosts a built single-page app. Paths that match a file are
// served as is; any other path gets index.html so the client router can
// handle it.
type staticSite struct {
	root    http.FileSystem
	favicon string
}

func newStaticSite(dir, favicon string) *staticSite {
	s := &staticSite{favicon: favicon}
	if dir != "" {
		s.root = http.Dir(dir)
	}
	return s
}

func (s *staticSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.root == nil || strings.HasPrefix(r.URL.Path, "/api/") {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}

	// http.Dir rejects names escaping the root once cleaned.
	name := path.Clean("/" + r.URL.Path)
	if s.serveFile(w, r, name) {
		return
	}
	if s.serveFile(w, r, "/index.html") {
		return
	}
	writeDetail(w, http.StatusNotFound, "Not Found")
}

// serveFile serves a regular file from the root. It reports false, having
// written nothing, when name is missing or a directory.
func (s *staticSite) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := s.root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

// serveFavicon serves the configured favicon, or the embedded one when none
// is configured or the file is unreadable.
func (s *staticSite) serveFavicon(w http.ResponseWriter, r *http.Request) {
	if s.favicon != "" {
		if data, err := os.ReadFile(s.favicon); err == nil {
			http.ServeContent(w, r, path.Base(s.favicon), time.Time{}, bytes.NewReader(data))
			return
		}
	}
	w.Header().Set("Content-Type", "image/gif")
	http.ServeContent(w, r, "favicon.gif", time.Time{}, bytes.NewReader(defaultFavicon))
}
