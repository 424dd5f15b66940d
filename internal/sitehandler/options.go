package sitehandler

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/profile"
	"github.com/vardo/vardo-web/internal/webassets"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

type SnapshotProvider interface {
	Get() (*profile.Snapshot, bool)
}

type Options struct {
	Logger log.Logger
	// Active profile
	Profiles SnapshotProvider

	// Templates must define IndexTemplate. Defaults to the embedded set.
	Templates     *template.Template
	IndexTemplate string // default: webassets.IndexTemplate

	// StaticFS is served under /static/. FallbackFS holds the maintenance
	// and 404 pages. Both default to the embedded assets.
	StaticFS        fs.FS
	FallbackFS      fs.FS
	MaintenanceFile string // default: "maintenance.html"
	NotFoundFile    string // default: "404.html"

	// Cache policies applied by file extension.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=3600"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() error {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Templates == nil {
		t, err := webassets.Templates()
		if err != nil {
			return err
		}
		o.Templates = t
	}
	if o.IndexTemplate == "" {
		o.IndexTemplate = webassets.IndexTemplate
	}
	if o.StaticFS == nil {
		o.StaticFS = webassets.StaticFS()
	}
	if o.FallbackFS == nil {
		o.FallbackFS = webassets.FallbackFS()
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.NotFoundFile == "" {
		o.NotFoundFile = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		// asset names are not content-hashed, so no immutable
		o.AssetCacheControl = "public, max-age=3600"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
	return nil
}

func (o *Options) validate() error {
	if o.Profiles == nil {
		return fmt.Errorf("%w: Profiles is nil", ErrInvalidOptions)
	}
	if o.Templates.Lookup(o.IndexTemplate) == nil {
		return fmt.Errorf("%w: template %q not defined", ErrInvalidOptions, o.IndexTemplate)
	}
	// Ensure maintenance exists (fail fast on boot if mispackaged).
	if _, err := fs.Stat(o.FallbackFS, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	// The 404 page is optional; plain text is served if it is missing.
	return nil
}
