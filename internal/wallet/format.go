package wallet

import (
	"net/url"
	"strings"
)

const (
	DefaultTruncateStart = 4
	DefaultTruncateEnd   = 4
)

// Truncate keeps the first start and last end characters of addr joined by
// "...". Values short enough to show whole are returned unchanged.
func Truncate(addr string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	r := []rune(addr)
	if len(r) <= start+end {
		return addr
	}
	return string(r[:start]) + "..." + string(r[len(r)-end:])
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\u00a0", "&nbsp;")

// SanitizeInput escapes text for an HTML text node. Quotes are left alone;
// the result is not safe inside an attribute.
func SanitizeInput(s string) string { return htmlEscaper.Replace(s) }

// IsValidURL reports whether raw is an absolute http(s) URL. With allowed
// domains, the host must be one of them or a subdomain of one.
func IsValidURL(raw string, allowed ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range allowed {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
