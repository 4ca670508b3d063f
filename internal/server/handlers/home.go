// Serves the todo page and its static assets.

package handlers

import (
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Home serves index.html at / and the other files of an embedded tree.
type Home struct {
	fs    fs.FS
	files http.Handler
}

// NewHome creates a handler for fsys, whose root holds index.html.
func NewHome(fsys fs.FS) *Home {
	return &Home{fs: fsys, files: http.FileServerFS(fsys)}
}

// ServeHTTP implements http.Handler.
func (h *Home) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path == "/" {
		h.serveIndex(w, r)
		return
	}
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	st, err := fs.Stat(h.fs, name)
	if err != nil || st.IsDir() || name == "index.html" {
		http.NotFound(w, r)
		return
	}
	if path.Ext(name) != "" {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	}
	h.files.ServeHTTP(w, r)
}

func (h *Home) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := h.fs.Open("index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(w, f)
}
