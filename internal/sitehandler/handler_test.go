package sitehandler

import (
	"html/template"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/profile"
	"github.com/vardo/vardo-web/internal/wallet"
)

// test fixtures

func testFallbackFS() fs.FS {
	return fstest.MapFS{
		"maintenance.html": &fstest.MapFile{Data: []byte("<h1>Maintenance</h1>")},
		"404.html":         &fstest.MapFile{Data: []byte("<h1>Fallback 404</h1>")},
	}
}

func testStaticFS() fs.FS {
	return fstest.MapFS{
		"app.js":          &fstest.MapFile{Data: []byte("console.log('hi')")},
		"style.css":       &fstest.MapFile{Data: []byte("body{}")},
		"favicon.svg":     &fstest.MapFile{Data: []byte("<svg/>")},
		"fonts/x.woff2":   &fstest.MapFile{Data: []byte("wOF2")},
		"data.json":       &fstest.MapFile{Data: []byte(`{}`)},
		".env":            &fstest.MapFile{Data: []byte("SECRET=1")},
		"img/.hidden.png": &fstest.MapFile{Data: []byte("PNG")},
	}
}

func loadedProvider() *profile.Manager {
	m := profile.NewManager()
	m.Set(profile.Snapshot{
		Profile: profile.Default(),
		Meta:    profile.Meta{Version: "2026-10-01", Source: profile.SourceDefault},
	})
	return m
}

func newTestHandler(t *testing.T, p SnapshotProvider) *Handler {
	t.Helper()
	h, err := New(Options{
		Logger:     log.Nop(),
		Profiles:   p,
		StaticFS:   testStaticFS(),
		FallbackFS: testFallbackFS(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, http.NoBody))
	return rec
}

// New

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for nil Profiles")
	}
	_, err := New(Options{Profiles: profile.NewManager(), FallbackFS: fstest.MapFS{}})
	if err == nil || !strings.Contains(err.Error(), "maintenance.html") {
		t.Fatalf("expected missing maintenance error, got %v", err)
	}
	tmpl := template.Must(template.New("other").Parse("x"))
	_, err = New(Options{Profiles: profile.NewManager(), Templates: tmpl})
	if err == nil || !strings.Contains(err.Error(), "not defined") {
		t.Fatalf("expected missing template error, got %v", err)
	}
}

func TestNew_EmbeddedDefaults(t *testing.T) {
	t.Parallel()
	h, err := New(Options{Profiles: loadedProvider()})
	if err != nil {
		t.Fatalf("New with embedded assets: %v", err)
	}
	rec := serve(h, http.MethodGet, "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("embedded style.css status = %d", rec.Code)
	}
}

// index

func TestServeIndex(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, loadedProvider())

	for _, p := range []string{"/", "/index.html"} {
		rec := serve(h, http.MethodGet, p)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", p, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("%s: Content-Type = %q", p, ct)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
			t.Fatalf("%s: Cache-Control = %q, want no-cache", p, cc)
		}
		body := rec.Body.String()
		for _, want := range []string{"Web3 Developer", "vardo.sol", "vardo.eth", "https://github.com/vardo", "profile 2026-10-01"} {
			if !strings.Contains(body, want) {
				t.Errorf("%s: body missing %q", p, want)
			}
		}
	}
}

func TestServeIndex_TruncatesAddresses(t *testing.T) {
	t.Parallel()
	m := profile.NewManager()
	p := profile.Default()
	p.Wallets = []wallet.Card{{Chain: wallet.ChainSolana, Label: "Solana", Address: "So11111111111111111111111111111111111111112"}}
	m.Set(profile.Snapshot{Profile: p})

	body := serve(newTestHandler(t, m), http.MethodGet, "/").Body.String()
	if !strings.Contains(body, ">So11...1112<") {
		t.Fatal("card should show the truncated address")
	}
	if !strings.Contains(body, `data-address="So11111111111111111111111111111111111111112"`) {
		t.Fatal("copy button should carry the full address")
	}
}

func TestServeIndex_Head(t *testing.T) {
	t.Parallel()
	rec := serve(newTestHandler(t, loadedProvider()), http.MethodHead, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatal("HEAD must not write a body")
	}
	if rec.Header().Get("Content-Length") == "" {
		t.Fatal("HEAD should advertise Content-Length")
	}
}

func TestServeIndex_Maintenance(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, profile.NewManager())

	for _, p := range []string{"/", "/index.html"} {
		rec := serve(h, http.MethodGet, p)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status = %d, want 503", p, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Maintenance") {
			t.Fatalf("%s: body = %q", p, rec.Body.String())
		}
		if rec.Header().Get("Retry-After") != "60" || rec.Header().Get("Cache-Control") != "no-store" {
			t.Fatalf("%s: headers = %v", p, rec.Header())
		}
	}
}

func TestServeIndex_Maintenance_IgnoresConditional(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, profile.NewManager())

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("If-Modified-Since", "Mon, 01 Jan 2100 00:00:00 GMT")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestServeIndex_TemplateError(t *testing.T) {
	t.Parallel()
	tmpl := template.Must(template.New("index.html.tmpl").Parse(`{{.Missing.Field}}`))
	h, err := New(Options{
		Profiles:   loadedProvider(),
		Templates:  tmpl,
		StaticFS:   testStaticFS(),
		FallbackFS: testFallbackFS(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if rec := serve(h, http.MethodGet, "/"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

// static

func TestServeStatic(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, loadedProvider())

	tests := []struct {
		path  string
		code  int
		cache string
	}{
		{"/static/app.js", http.StatusOK, "public, max-age=3600"},
		{"/static/style.css", http.StatusOK, "public, max-age=3600"},
		{"/static/fonts/x.woff2", http.StatusOK, "public, max-age=3600"},
		{"/static/data.json", http.StatusOK, "public, max-age=3600"},
		{"/favicon.svg", http.StatusOK, "public, max-age=3600"},
		{"/static/", http.StatusNotFound, "no-store"},
		{"/static/fonts", http.StatusNotFound, "no-store"},
		{"/static/fonts/", http.StatusNotFound, "no-store"},
		{"/static/missing.js", http.StatusNotFound, "no-store"},
		{"/static/.env", http.StatusNotFound, "no-store"},
		{"/static/img/.hidden.png", http.StatusNotFound, "no-store"},
		{"/static//app.js", http.StatusNotFound, "no-store"},
	}
	for _, tt := range tests {
		rec := serve(h, http.MethodGet, tt.path)
		if rec.Code != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.code)
			continue
		}
		if cc := rec.Header().Get("Cache-Control"); cc != tt.cache {
			t.Errorf("%s: Cache-Control = %q, want %q", tt.path, cc, tt.cache)
		}
	}
}

// not found and methods

func TestServeNotFound(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, loadedProvider())

	for _, p := range []string{"/about", "/api/unknown", "/posts/index.html"} {
		rec := serve(h, http.MethodGet, p)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", p, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Fallback 404") {
			t.Fatalf("%s: body = %q", p, rec.Body.String())
		}
	}
}

func TestServeNotFound_PlainTextWithout404Page(t *testing.T) {
	t.Parallel()
	h, err := New(Options{
		Profiles:   loadedProvider(),
		StaticFS:   testStaticFS(),
		FallbackFS: fstest.MapFS{"maintenance.html": &fstest.MapFile{Data: []byte("m")}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := serve(h, http.MethodGet, "/nope")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "404 page not found") {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, loadedProvider())

	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions} {
		rec := serve(h, m, "/")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", m, rec.Code)
		}
		if rec.Header().Get("Allow") != "GET, HEAD" {
			t.Errorf("%s: Allow = %q", m, rec.Header().Get("Allow"))
		}
	}
}

// helpers

func TestResolvePath(t *testing.T) {
	t.Parallel()
	fsys := testStaticFS()

	tests := []struct {
		rel  string
		want string
		ok   bool
	}{
		{"app.js", "app.js", true},
		{"fonts/x.woff2", "fonts/x.woff2", true},
		{"", "", false},
		{"fonts", "", false},
		{"fonts/", "", false},
		{"../app.js", "", false},
		{"fonts/../app.js", "", false},
		{"./app.js", "", false},
		{"app.js\x00", "", false},
		{"fonts\\x.woff2", "", false},
		{".env", "", false},
		{"missing.css", "", false},
	}
	for _, tt := range tests {
		got, ok := resolvePath(tt.rel, fsys)
		if got != tt.want || ok != tt.ok {
			t.Errorf("resolvePath(%q) = (%q, %v), want (%q, %v)", tt.rel, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCacheControlForFile(t *testing.T) {
	t.Parallel()
	o := &Options{}
	if err := o.setDefaults(); err != nil {
		t.Fatal(err)
	}
	tests := map[string]string{
		"index.html":  "no-cache",
		"README":      "no-cache",
		"app.js":      o.AssetCacheControl,
		"STYLE.CSS":   o.AssetCacheControl,
		"favicon.svg": o.AssetCacheControl,
		"data.json":   o.OtherCacheControl,
	}
	for name, want := range tests {
		if got := cacheControlForFile(name, o); got != want {
			t.Errorf("cacheControlForFile(%q) = %q, want %q", name, got, want)
		}
	}
}
