package httpmw

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vardo/vardo-web/internal/log"
)

func TestSchemeFromRequest(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		proto string
		url   string
		tls   bool
		want  string
	}{
		{"forwarded https", "https", "/", false, "https"},
		{"forwarded case-insensitive", "HTTPS", "/", false, "https"},
		{"forwarded list takes first", "https, http", "/", false, "https"},
		{"forwarded junk ignored", "javascript", "/", false, "http"},
		{"forwarded newline ignored", "https\nX-Evil: 1", "/", false, "http"},
		{"tls", "", "/", true, "https"},
		{"absolute url", "", "https://vardo.example.com/", false, "https"},
		{"default", "", "/", false, "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, tt.url, http.NoBody)
			if tt.proto != "" {
				r.Header["X-Forwarded-Proto"] = []string{tt.proto}
			}
			if tt.tls {
				r.TLS = &tls.ConnectionState{}
			} else {
				r.TLS = nil
			}
			if got := schemeFromRequest(r); got != tt.want {
				t.Fatalf("scheme = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithLogger_EnrichesContext(t *testing.T) {
	t.Parallel()
	spy := newSpyLogger()
	h := RequestID("")(withFixedClientIP("198.51.100.4", WithLogger(spy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info(r.Context(), "inside")
	}))))

	r := httptest.NewRequest(http.MethodGet, "/api/profile?x=1", http.NoBody)
	r.RemoteAddr = "10.0.0.7:4444"
	r.Header.Set("User-Agent", "curl/8")
	h.ServeHTTP(httptest.NewRecorder(), r)

	e, ok := spy.last()
	if !ok {
		t.Fatal("nothing logged")
	}
	want := map[string]any{
		"client.address":       "198.51.100.4",
		"network.peer.address": "10.0.0.7",
		"http.request.method":  http.MethodGet,
		"url.path":             "/api/profile",
		"url.query":            "x=1",
		"url.scheme":           "http",
	}
	for k, v := range want {
		if e.fields[k] != v {
			t.Errorf("%s = %v, want %v", k, e.fields[k], v)
		}
	}
	if id, _ := e.fields["request_id"].(string); id == "" {
		t.Error("request_id missing")
	}
	for k, v := range e.fields {
		if s, ok := v.(string); ok && strings.Contains(s, "curl") {
			t.Errorf("user agent leaked into field %s", k)
		}
	}
}

// withFixedClientIP stands in for ClientIP.
func withFixedClientIP(ip string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
	})
}

func TestAccessLog(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		path    string
		status  int
		logged  bool
		wantSts int
	}{
		{"api request", "/api/particles", http.StatusOK, true, http.StatusOK},
		{"default status", "/api/profile", 0, true, http.StatusOK},
		{"error status", "/api/validate", http.StatusTooManyRequests, true, http.StatusTooManyRequests},
		{"static asset skipped", "/static/app.js", http.StatusOK, false, 0},
		{"health skipped", "/-/healthy", http.StatusOK, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spy := newSpyLogger()
			inner := AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte("hello"))
			}))
			h := WithLogger(spy)(inner)
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			entries := spy.all()
			if !tt.logged {
				if len(entries) != 0 {
					t.Fatalf("expected no log, got %+v", entries)
				}
				return
			}
			if len(entries) != 1 || entries[0].msg != "http request" {
				t.Fatalf("entries = %+v", entries)
			}
			f := entries[0].fields
			if f["http.response.status_code"] != tt.wantSts {
				t.Errorf("status = %v, want %d", f["http.response.status_code"], tt.wantSts)
			}
			if f["http.response.body.size"] != int64(5) {
				t.Errorf("body size = %v", f["http.response.body.size"])
			}
			if f["http.route"] != tt.path {
				t.Errorf("route = %v", f["http.route"])
			}
		})
	}
}

func TestAccessLog_ChiRoutePattern(t *testing.T) {
	t.Parallel()
	spy := newSpyLogger()
	r := chi.NewRouter()
	r.Use(AccessLog())
	r.Post("/api/wallets/{chain}/copy", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := WithLogger(spy)(r)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/wallets/solana/copy", http.NoBody))

	e, ok := spy.last()
	if !ok {
		t.Fatal("nothing logged")
	}
	if e.fields["http.route"] != "/api/wallets/{chain}/copy" {
		t.Fatalf("route = %v", e.fields["http.route"])
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, ctx: context.Background()}
	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)
	if rw.statusCode() != http.StatusTeapot {
		t.Fatalf("status = %d", rw.statusCode())
	}
	if _, _, err := rw.Hijack(); err == nil {
		t.Fatal("recorder is not a Hijacker")
	}
	rw.Flush()
	if !rec.Flushed {
		t.Fatal("flush not forwarded")
	}
}

func TestScope(t *testing.T) {
	t.Parallel()
	spy := newSpyLogger()
	h := WithLogger(spy)(Scope("api.profile")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info(r.Context(), "x")
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	e, _ := spy.last()
	if e.fields["handler"] != "api.profile" {
		t.Fatalf("handler = %v", e.fields["handler"])
	}
}
