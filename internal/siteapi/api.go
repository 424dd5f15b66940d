// Package siteapi serves the JSON endpoints behind the landing page: the
// profile, the particle field and the rate-limited wallet actions.
package siteapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vardo/vardo-web/internal/httpmw"
	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/particle"
	"github.com/vardo/vardo-web/internal/profile"
	"github.com/vardo/vardo-web/internal/ratelimit"
	"github.com/vardo/vardo-web/internal/wallet"
)

// SnapshotProvider is the active profile. *profile.Manager implements it.
type SnapshotProvider interface {
	Get() (*profile.Snapshot, bool)
}

// Metrics is the subset of the server metrics the API reports to.
type Metrics interface {
	IncWalletCopy(chain string)
	IncValidation(chain, result string)
}

type Options struct {
	Logger   log.Logger
	Profiles SnapshotProvider
	Field    *particle.Field
	Metrics  Metrics

	// Limiter guards the wallet actions per client IP. nil disables limiting.
	Limiter        ratelimit.Keyed
	RetryAfter     time.Duration
	OnDenied       func(key string)
	OnLimiterError func(ctx context.Context, key string, err error)

	Network wallet.Network
	RPCURL  string
}

// API implements the /api endpoints.
type API struct {
	logger   log.Logger
	profiles SnapshotProvider
	metrics  Metrics
	guard    func(copyScope string) func(http.Handler) http.Handler
	network  wallet.Network
	rpcURL   string
	cloud    cloudBody
}

func New(opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Field == nil {
		opts.Field = particle.New(particle.DefaultCount, nil)
	}
	if opts.Network == "" {
		opts.Network = wallet.Devnet
	}
	api := &API{
		logger:   opts.Logger,
		profiles: opts.Profiles,
		metrics:  opts.Metrics,
		network:  opts.Network,
		rpcURL:   opts.RPCURL,
		cloud:    encodeCloud(opts.Field),
	}
	api.guard = func(scope string) func(http.Handler) http.Handler {
		return ratelimit.Guard(ratelimit.GuardOptions{
			Limiter:    opts.Limiter,
			Scope:      scope,
			RetryAfter: opts.RetryAfter,
			OnDenied:   opts.OnDenied,
			OnError:    opts.OnLimiterError,
		})
	}
	return api
}

// RegisterRoutes attaches the API endpoints to the router.
func (api *API) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.With(httpmw.Scope("profile")).Get("/profile", api.HandleProfile)

		r.Route("/particles", func(r chi.Router) {
			r.Use(httpmw.Scope("particles"))
			r.Get("/", api.HandleParticles)
			r.Head("/", api.HandleParticles)
			r.Get("/frame", api.HandleFrame)
			r.Get("/mode", api.HandleMode)
		})

		r.With(httpmw.Scope("wallet-copy"), api.guard("copy")).
			Post("/wallets/{chain}/copy", api.HandleCopy)
		r.With(httpmw.Scope("validate"), api.guard("validate")).
			Post("/validate", api.HandleValidate)
		r.With(httpmw.Scope("network")).Get("/wallet/network", api.HandleNetwork)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}

func (api *API) writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	api.writeJSON(ctx, w, status, errorResponse{Error: msg})
}

type nopMetrics struct{}

func (nopMetrics) IncWalletCopy(string)         {}
func (nopMetrics) IncValidation(string, string) {}
