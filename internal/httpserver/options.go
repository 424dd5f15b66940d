package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vardo/vardo-web/internal/health"
	"github.com/vardo/vardo-web/internal/httpmw"
	"github.com/vardo/vardo-web/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler // site-wide flood guard, sees the resolved client IP
	ClientIPOpts httpmw.ClientIPOptions
	Health       health.Probe
	Readiness    health.Probe
	APIRoutes    func(chi.Router)
	SiteHandler  http.Handler
	ProfileInfo  httpmw.ProfileInfo // X-Profile-Version and X-Profile-Hash
	MaxBodyBytes int64              // 0 uses DefaultMaxBodyBytes
}
