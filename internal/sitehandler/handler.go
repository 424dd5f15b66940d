// Package sitehandler serves the landing page, its static assets and the
// maintenance and 404 fallbacks.
package sitehandler

import (
	"bytes"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/vardo/vardo-web/internal/profile"
	"github.com/vardo/vardo-web/internal/wallet"
)

const staticPrefix = "/static/"

type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// hardening: only allow GET/HEAD
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p := r.URL.Path
	switch {
	case p == "/" || p == "/index.html":
		h.serveIndex(w, r)
	case p == "/favicon.svg":
		h.serveStatic(w, r, "favicon.svg")
	case strings.HasPrefix(p, staticPrefix):
		h.serveStatic(w, r, strings.TrimPrefix(p, staticPrefix))
	default:
		h.serveNotFound(w, r)
	}
}

type cardView struct {
	Chain   wallet.Chain
	Label   string
	Address string
	Display string
}

type pageData struct {
	Headline string
	Tagline  string
	Version  string
	Wallets  []cardView
	Socials  []profile.Social
}

func newPageData(s *profile.Snapshot) pageData {
	d := pageData{
		Headline: s.Profile.Headline,
		Tagline:  s.Profile.Tagline,
		Version:  s.Meta.Version,
		Socials:  s.Profile.Socials,
		Wallets:  make([]cardView, 0, len(s.Profile.Wallets)),
	}
	for _, c := range s.Profile.Wallets {
		d.Wallets = append(d.Wallets, cardView{
			Chain:   c.Chain,
			Label:   c.Label,
			Address: c.Address,
			Display: c.Display(),
		})
	}
	return d
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.opts.Profiles.Get()
	if !ok {
		h.serveMaintenance(w, r)
		return
	}

	// render fully before writing so a template error can still become a 500
	var buf bytes.Buffer
	if err := h.opts.Templates.ExecuteTemplate(&buf, h.opts.IndexTemplate, newPageData(snap)); err != nil {
		h.opts.Logger.Error(r.Context(), err, "render index", "profile_version", snap.Meta.Version)
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/html; charset=utf-8")
	hdr.Set("Cache-Control", h.opts.HTMLCacheControl)
	hdr.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request, rel string) {
	file, ok := resolvePath(rel, h.opts.StaticFS)
	if !ok {
		h.serveNotFound(w, r)
		return
	}
	if cc := cacheControlForFile(file, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, h.opts.StaticFS, file)
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	// Maintenance should never be cached.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")

	serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.FallbackFS, h.opts.MaintenanceFile)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	// avoid caching 404 responses
	w.Header().Set("Cache-Control", "no-store")

	if existsFile(h.opts.FallbackFS, h.opts.NotFoundFile) {
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.FallbackFS, h.opts.NotFoundFile)
		return
	}

	// last resort: plain text
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

// http.ServeFileFS picks its own status code, so the first WriteHeader is
// replaced with the status we want (404/503).
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	// conditional headers would turn the forced status into a 304, and a
	// request path ending in index.html would become a redirect
	r = r.Clone(r.Context())
	r.Header.Del("If-Modified-Since")
	r.Header.Del("If-None-Match")
	r.URL.Path = "/" + name
	sw := &statusOverrideWriter{ResponseWriter: w, status: status}
	http.ServeFileFS(sw, r, fsys, name)
}
