package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	for _, kv := range securityHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Errorf("%s = %q, want %q", kv[0], got, kv[1])
		}
	}
	csp := rec.Header().Get("Content-Security-Policy")
	if strings.Contains(csp, "unsafe-inline") || strings.Contains(csp, "unsafe-eval") {
		t.Fatalf("CSP must not allow inline code: %s", csp)
	}
	if !strings.Contains(csp, "connect-src 'self'") {
		t.Fatal("CSP must allow same-origin API calls")
	}
}

type staticProfile struct{ version, hash string }

func (s staticProfile) ProfileVersion() string { return s.version }
func (s staticProfile) ProfileHash() string    { return s.hash }

func TestProfileHeaders(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		info        ProfileInfo
		wantVersion string
		wantHash    string
	}{
		{"full", staticProfile{"v7", "0123456789abcdef0123"}, "v7", "0123456789ab"},
		{"short hash", staticProfile{"v1", "abc"}, "v1", "abc"},
		{"empty", staticProfile{}, "", ""},
		{"nil info", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			ProfileHeaders(tt.info)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			if got := rec.Header().Get("X-Profile-Version"); got != tt.wantVersion {
				t.Errorf("version = %q, want %q", got, tt.wantVersion)
			}
			if got := rec.Header().Get("X-Profile-Hash"); got != tt.wantHash {
				t.Errorf("hash = %q, want %q", got, tt.wantHash)
			}
		})
	}
}

func TestProfileHeaders_SpanAttributes(t *testing.T) {
	t.Parallel()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ctx, span := tp.Tracer("test").Start(context.Background(), "req")

	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)
	ProfileHeaders(staticProfile{"v2", "deadbeef"})(okHandler).ServeHTTP(httptest.NewRecorder(), r)
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("spans = %d", len(ended))
	}
	attrs := map[string]string{}
	for _, a := range ended[0].Attributes() {
		attrs[string(a.Key)] = a.Value.AsString()
	}
	if attrs["profile.version"] != "v2" || attrs["profile.hash"] != "deadbeef" {
		t.Fatalf("attrs = %v", attrs)
	}
}

func TestTraceResponseHeaders(t *testing.T) {
	t.Parallel()
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "req")
	defer span.End()

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)
	TraceResponseHeaders("", "")(okHandler).ServeHTTP(rec, r)

	sc := span.SpanContext()
	if rec.Header().Get("X-Trace-Id") != sc.TraceID().String() {
		t.Fatal("trace id header mismatch")
	}
	if rec.Header().Get("X-Span-Id") != sc.SpanID().String() {
		t.Fatal("span id header mismatch")
	}

	rec = httptest.NewRecorder()
	TraceResponseHeaders("", "")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("trace header set without a span")
	}
}
