// Package web ships the browser UI embedded into the gateway binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var assets embed.FS

// Static returns the UI file tree rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
