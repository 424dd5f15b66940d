package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProfileInfo reports the active profile document. *profile.Manager implements it.
type ProfileInfo interface {
	ProfileVersion() string
	ProfileHash() string
}

const shortHashLen = 12

// ProfileHeaders sets X-Profile-Version and X-Profile-Hash (shortened) on
// every response and tags the recording span with the full values.
func ProfileHeaders(info ProfileInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, h := info.ProfileVersion(), info.ProfileHash()
			if v != "" {
				w.Header().Set("X-Profile-Version", v)
			}
			if h != "" {
				short := h
				if len(short) > shortHashLen {
					short = short[:shortHashLen]
				}
				w.Header().Set("X-Profile-Hash", short)
			}
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("profile.version", v),
					attribute.String("profile.hash", h),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
