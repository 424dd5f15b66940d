package httpmw

import (
	"net/http"
	"runtime/debug"

	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/xerrors"
)

// Recover turns handler panics into a logged error and a 500. onPanic,
// if set, runs after logging. http.ErrAbortHandler is re-panicked so the
// server can abort the connection as intended.
func Recover(L log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if L == nil {
		L = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				var err error
				if e, ok := rec.(error); ok {
					err = xerrors.Wrap(e, "panic")
				} else {
					err = xerrors.Newf("panic: %v", rec)
				}

				ctx := r.Context()
				L.With(
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				).Error(ctx, err, "httpserver panic recovered",
					"panic.stack", string(debug.Stack()),
				)

				if onPanic != nil {
					onPanic()
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
