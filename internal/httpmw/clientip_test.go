package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractRealClientAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		hops       int
		want       string
		stripped   bool
	}{
		{"private ignores xff without hops", "10.0.0.1:1234", "203.0.113.50", 0, "10.0.0.1", true},
		{"public ignores xff", "203.0.113.1:1234", "10.0.0.1", 1, "203.0.113.1", true},
		{"loopback is not trusted", "127.0.0.1:1234", "203.0.113.50", 1, "127.0.0.1", true},
		{"single alb takes rightmost", "10.0.0.1:1234", "198.51.100.7, 203.0.113.50", 1, "203.0.113.50", false},
		{"cdn and alb take second from end", "10.0.0.1:1234", "198.51.100.7, 203.0.113.50, 10.0.0.9", 2, "203.0.113.50", false},
		{"too few entries fails closed", "10.0.0.1:1234", "203.0.113.50", 3, "10.0.0.1", true},
		{"garbage entry keeps peer", "10.0.0.1:1234", "not-an-ip", 1, "10.0.0.1", false},
		{"no xff with hops", "10.0.0.1:1234", "", 1, "10.0.0.1", false},
		{"ipv6 private", "[fd00::1]:1234", "2001:db8::1", 1, "2001:db8::1", false},
		{"malformed remote addr", "garbage", "", 0, "garbage", false},
		{"unparseable host", "nothost:80", "", 0, "0.0.0.0", false},
		{"empty remote addr", "", "", 0, "0.0.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
				r.Header.Set("X-Forwarded-Proto", "https")
			}
			if got := extractRealClientAddr(r, tt.hops); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			if tt.stripped && (r.Header.Get("X-Forwarded-For") != "" || r.Header.Get("X-Forwarded-Proto") != "") {
				t.Fatal("forwarded headers not stripped")
			}
		})
	}
}

func TestClientIPWithOptions_StoresInContext(t *testing.T) {
	t.Parallel()
	var got string
	h := ClientIPWithOptions(ClientIPOptions{TrustedHops: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.23")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "198.51.100.23" {
		t.Fatalf("client ip = %q", got)
	}
}

func TestClientIP_DefaultIgnoresForwarded(t *testing.T) {
	t.Parallel()
	var got string
	h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.23")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "10.1.2.3" {
		t.Fatalf("client ip = %q", got)
	}
}

func TestWithClientIP_Empty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if WithClientIP(ctx, "") != ctx {
		t.Fatal("empty ip should return ctx unchanged")
	}
	if ClientIPFromContext(ctx) != "" {
		t.Fatal("expected empty ip")
	}
}
