// Package staticfiles implements duwop's static file server (spec C3),
// grounded on the teacher's own static-UI-serving block in
// cmd/hostapp/main.go (filepath.Clean + http.ServeFile + index.html
// fallback), split into a standalone, reusable handler with the
// descendant-of-root traversal defense spec.md §4.3 requires.
package staticfiles

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// extToContentType is the fixed content-type table spec.md §4.3 names.
var extToContentType = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".wasm": "application/wasm",
}

const defaultContentType = "text/plain"

// Handler serves files rooted at Root for a single virtual host.
type Handler struct {
	// Root is the canonical absolute directory this handler serves.
	Root string
}

func New(root string) *Handler { return &Handler{Root: root} }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqPath := r.URL.Path
	if !strings.HasPrefix(reqPath, "/") {
		http.NotFound(w, r)
		return
	}
	if strings.HasSuffix(reqPath, "/") {
		reqPath += "index.html"
	}

	joined := filepath.Join(h.Root, filepath.FromSlash(reqPath))
	canon, err := filepath.EvalSymlinks(joined)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	canonRoot, err := filepath.EvalSymlinks(h.Root)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !isDescendant(canonRoot, canon) {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(canon)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ct := extToContentType[strings.ToLower(filepath.Ext(canon))]
	if ct == "" {
		ct = defaultContentType
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// isDescendant reports whether path is root or a descendant of root.
func isDescendant(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, "..")
}
