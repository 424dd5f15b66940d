// Package webassets embeds the landing page template, its static files and
// the fallback pages served when no profile is loaded.
package webassets

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

// IndexTemplate is the name of the landing page template.
const IndexTemplate = "index.html.tmpl"

// fallback/, static/ and templates/ must each hold at least one file to satisfy go:embed
//
//go:embed fallback static templates
var embedded embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return s
}

// FallbackFS holds maintenance.html and 404.html.
func FallbackFS() fs.FS { return sub("fallback") }

// StaticFS holds the files served under /static/.
func StaticFS() fs.FS { return sub("static") }

// Templates parses every page template.
func Templates() (*template.Template, error) {
	t, err := template.ParseFS(embedded, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("webassets: parse templates: %w", err)
	}
	return t, nil
}
