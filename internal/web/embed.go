// Package web serves the embedded single-page front end.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed dist/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the dist folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// RegisterStaticRoutes serves the page for every non-API GET route.
// API routes must be registered first.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}

	fileServer := http.FileServer(http.FS(staticFS))

	e.GET("/*", func(c echo.Context) error {
		requestPath := path.Clean(c.Request().URL.Path)

		// Unknown API paths must not fall through to the page
		if requestPath == "/api" || strings.HasPrefix(requestPath, "/api/") {
			return echo.ErrNotFound
		}

		name := strings.TrimPrefix(requestPath, "/")
		if name == "" {
			return serveIndexHTML(c, staticFS)
		}

		stat, err := fs.Stat(staticFS, name)
		if err != nil || stat.IsDir() {
			// Client-side route, hand back the page
			return serveIndexHTML(c, staticFS)
		}

		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	return nil
}

// serveIndexHTML serves the main index.html
func serveIndexHTML(c echo.Context, staticFS fs.FS) error {
	content, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "index.html not found")
	}
	return c.HTMLBlob(http.StatusOK, content)
}

// HasEmbeddedFiles reports whether index.html was embedded.
func HasEmbeddedFiles() bool {
	_, err := fs.Stat(staticFiles, "dist/index.html")
	return err == nil
}
