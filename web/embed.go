// Package web provides the embedded upload page for the rxdecode server.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var staticFS embed.FS

// StaticFS returns the embedded assets rooted at the static directory,
// so files are accessed directly (e.g., "index.html").
func StaticFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
