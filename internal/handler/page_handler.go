package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// PageHandler serves the built frontend. Unknown paths fall back to index.html
// so client side routes resolve.
type PageHandler struct {
	root string
}

// NewPageHandler serves files under root.
func NewPageHandler(root string) *PageHandler {
	return &PageHandler{root: root}
}

// Serve writes the requested asset or the application shell.
func (h *PageHandler) Serve(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusNotFound)
		return
	}
	rel := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+c.Request.URL.Path)), "/"))
	if rel != "" && rel != "." {
		target := filepath.Join(h.root, rel)
		if serveFile(c, target) {
			return
		}
	}
	if !serveFile(c, filepath.Join(h.root, "index.html")) {
		c.AbortWithStatus(http.StatusNotFound)
	}
}

// serveFile writes the regular file at path without consulting the raw request path.
func serveFile(c *gin.Context, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	return true
}
