package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

const indexFile = "index.html"

// ErrIndexMissing is returned when the static directory has no index.html.
var ErrIndexMissing = errors.New("static directory has no index.html")

// CheckStaticDir verifies that dir holds the front-end root document.
func CheckStaticDir(dir string) error {
	info, err := os.Stat(filepath.Join(dir, indexFile))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrIndexMissing, dir, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrIndexMissing, dir)
	}

	return nil
}

// staticHandler serves files from a directory and answers every path that is
// not an existing file with index.html, so the front end can route itself.
type staticHandler struct {
	dir string
}

func newStaticHandler(dir string) *staticHandler {
	return &staticHandler{dir: dir}
}

func (h *staticHandler) index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.dir, indexFile))
}

func (h *staticHandler) serve(w http.ResponseWriter, r *http.Request) {
	cleaned := path.Clean("/" + chi.URLParam(r, "*"))
	full := filepath.Join(h.dir, filepath.FromSlash(cleaned))

	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		h.index(w, r)

		return
	}

	http.ServeFile(w, r, full)
}
