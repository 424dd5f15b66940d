package httpserver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vardo/vardo-web/internal/health"
	"github.com/vardo/vardo-web/internal/httpserver"
	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/metrics"
	"github.com/vardo/vardo-web/internal/particle"
	"github.com/vardo/vardo-web/internal/profile"
	"github.com/vardo/vardo-web/internal/ratelimit"
	"github.com/vardo/vardo-web/internal/siteapi"
	"github.com/vardo/vardo-web/internal/sitehandler"
)

// TestIntegration_FullStack wires httpserver.NewHandler with the real site
// handler, API and metrics middleware over an in-memory profile manager.
func TestIntegration_FullStack(t *testing.T) {
	t.Parallel()

	mgr := profile.NewManager()
	mgr.Set(profile.Snapshot{
		Profile: profile.Default(),
		Meta:    profile.Meta{Version: "2026-10-01", SHA256: strings.Repeat("c0", 32), Source: profile.SourceFile},
	})

	siteH, err := sitehandler.New(sitehandler.Options{Logger: log.Nop(), Profiles: mgr})
	if err != nil {
		t.Fatalf("sitehandler.New: %v", err)
	}

	lim, err := ratelimit.New(2, time.Minute)
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	m := metrics.New()
	api := siteapi.New(siteapi.Options{
		Logger:   log.Nop(),
		Profiles: mgr,
		Field:    particle.NewSeeded(100, 1),
		Metrics:  m,
		Limiter:  lim,
	})

	handler := httpserver.NewHandler(httpserver.Options{
		Logger:       log.Nop(),
		UseRecoverMW: true,
		MetricsMW:    m.Middleware,
		Readiness:    health.CheckFunc(func(context.Context) error { return mgr.ReadyErr() }),
		APIRoutes:    func(r chi.Router) { api.RegisterRoutes(r) },
		SiteHandler:  siteH,
		ProfileInfo:  mgr,
	})

	get := func(t *testing.T, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
		t.Helper()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, body)
		req.RemoteAddr = "203.0.113.9:5555"
		for k, v := range hdr {
			req.Header.Set(k, v)
		}
		handler.ServeHTTP(rec, req)
		return rec
	}

	securityHeaders := []string{
		"Strict-Transport-Security",
		"Content-Security-Policy",
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Referrer-Policy",
		"Cross-Origin-Embedder-Policy",
		"Cross-Origin-Opener-Policy",
		"Cross-Origin-Resource-Policy",
		"Permissions-Policy",
	}

	t.Run("renders landing page with security and profile headers", func(t *testing.T) {
		t.Parallel()
		rec := get(t, http.MethodGet, "/", http.NoBody, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "vardo.sol") {
			t.Fatal("landing page missing wallet card")
		}
		for _, hdr := range securityHeaders {
			if rec.Header().Get(hdr) == "" {
				t.Errorf("missing security header: %s", hdr)
			}
		}
		if got := rec.Header().Get("X-Profile-Version"); got != "2026-10-01" {
			t.Errorf("X-Profile-Version = %q", got)
		}
		if got := rec.Header().Get("X-Profile-Hash"); got != "c0c0c0c0c0c0" {
			t.Errorf("X-Profile-Hash = %q", got)
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Error("X-Request-Id not set")
		}
	})

	t.Run("serves static assets", func(t *testing.T) {
		t.Parallel()
		rec := get(t, http.MethodGet, "/static/app.js", http.NoBody, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get("Strict-Transport-Security") == "" {
			t.Fatal("HSTS missing on static asset response")
		}
	})

	t.Run("api profile", func(t *testing.T) {
		t.Parallel()
		rec := get(t, http.MethodGet, "/api/profile", http.NoBody, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"headline":"Web3 Developer"`) {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("api particles compresses", func(t *testing.T) {
		t.Parallel()
		rec := get(t, http.MethodGet, "/api/particles", http.NoBody, map[string]string{"Accept-Encoding": "gzip"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ce := rec.Header().Get("Content-Encoding"); ce != "gzip" {
			t.Fatalf("Content-Encoding = %q, want gzip", ce)
		}
	})

	t.Run("validate rejects oversized body", func(t *testing.T) {
		t.Parallel()
		body := strings.NewReader(`{"chain":"sol","value":"` + strings.Repeat("x", 8<<10) + `"}`)
		rec := get(t, http.MethodPost, "/api/validate", body, map[string]string{"Content-Type": "application/json"})
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("returns 404 for missing path", func(t *testing.T) {
		t.Parallel()
		rec := get(t, http.MethodGet, "/does-not-exist", http.NoBody, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if rec.Header().Get("Strict-Transport-Security") == "" {
			t.Fatal("HSTS missing on 404 response")
		}
	})

	t.Run("rejects DELETE with 405", func(t *testing.T) {
		t.Parallel()
		rec := get(t, http.MethodDelete, "/", http.NoBody, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("readiness follows the profile", func(t *testing.T) {
		t.Parallel()
		rec := get(t, http.MethodGet, "/-/ready", http.NoBody, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}

// The copy endpoint shares one per-IP budget across requests; this runs on
// its own handler so parallel subtests above cannot consume it.
func TestIntegration_WalletCopyRateLimited(t *testing.T) {
	t.Parallel()

	mgr := profile.NewManager()
	mgr.Set(profile.Snapshot{Profile: profile.Default()})
	lim, err := ratelimit.New(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow)
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New()
	api := siteapi.New(siteapi.Options{Profiles: mgr, Metrics: m, Limiter: lim, OnDenied: func(string) { m.IncRateLimitDenied("wallet") }})
	handler := httpserver.NewHandler(httpserver.Options{APIRoutes: api.RegisterRoutes})

	post := func(ip string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/wallets/solana/copy", http.NoBody)
		req.RemoteAddr = ip + ":1234"
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < ratelimit.DefaultMaxRequests; i++ {
		if code := post("203.0.113.1"); code != http.StatusNoContent {
			t.Fatalf("copy %d: status = %d, want 204", i+1, code)
		}
	}
	if code := post("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Fatalf("sixth copy: status = %d, want 429", code)
	}
	if code := post("203.0.113.2"); code != http.StatusNoContent {
		t.Fatalf("other visitor: status = %d, want 204", code)
	}
}
