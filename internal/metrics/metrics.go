// Package metrics owns the Prometheus registry for the site server. Every
// collector lives on a private registry served by the ops listener, and
// label sets are kept to bounded values (method, route, status, chain,
// limiter) so scraped cardinality cannot grow with traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vardo/vardo-web/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	httpPanicTotal prometheus.Counter

	buildInfo       *prometheus.GaugeVec
	profilingActive prometheus.Gauge

	ratelimitDenied   *prometheus.CounterVec
	ratelimitCapacity *prometheus.CounterVec
	ratelimitErrors   *prometheus.CounterVec
	ratelimitKeys     *prometheus.GaugeVec
	ratelimitSwept    prometheus.Counter

	walletCopies     *prometheus.CounterVec
	validationsTotal *prometheus.CounterVec
	particlePoints   prometheus.Gauge

	profileSource   *prometheus.GaugeVec
	profileInfo     *prometheus.GaugeVec
	profileLoadedTs prometheus.Gauge
	profileSigned   prometheus.Gauge

	watcherPollsTotal    prometheus.Counter
	watcherSwapsTotal    prometheus.Counter
	watcherErrorsTotal   *prometheus.CounterVec
	profileLoadDuration  prometheus.Histogram
	watcherLastSuccessTs prometheus.Gauge
	watcherStale         prometheus.Gauge
}

// New builds the registry with Go and process collectors plus the server's own.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		ratelimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_denied_total",
			Help: "Requests rejected by a rate limiter",
		}, []string{"limiter"}),
		ratelimitCapacity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_capacity_total",
			Help: "Times a rate limiter refused to track a new key because it was full",
		}, []string{"limiter"}),
		ratelimitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_errors_total",
			Help: "Rate limiter backend errors (requests were let through)",
		}, []string{"limiter"}),
		ratelimitKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratelimit_tracked_keys",
			Help: "Keys currently tracked by an in-memory rate limiter",
		}, []string{"limiter"}),
		ratelimitSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_swept_keys_total",
			Help: "Idle sliding-window keys dropped by the sweeper",
		}),
		walletCopies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_copies_total",
			Help: "Wallet address copies reported by the page, by chain",
		}, []string{"chain"}),
		validationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_validations_total",
			Help: "Wallet input validations by chain and result kind",
		}, []string{"chain", "result"}),
		particlePoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "particle_field_points",
			Help: "Number of points in the served particle field",
		}),
		profileSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "profile_source_info",
			Help: "Current profile source (label carries value, gauge is always 1)",
		}, []string{"source"}),
		profileInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "profile_document_info",
			Help: "Active profile document (labels carry identity, value is always 1)",
		}, []string{"version", "sha256"}),
		profileLoadedTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profile_loaded_timestamp_seconds",
			Help: "Unix timestamp of when the active profile was loaded",
		}),
		profileSigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profile_signed",
			Help: "Whether the active profile signature was verified (1) or not (0)",
		}),
		watcherPollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profile_watcher_polls_total",
			Help: "Total number of watcher poll cycles",
		}),
		watcherSwapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profile_watcher_swaps_total",
			Help: "Total number of successful profile swaps",
		}),
		watcherErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_watcher_errors_total",
			Help: "Total watcher errors by type",
		}, []string{"type"}),
		profileLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "profile_load_duration_seconds",
			Help:    "Time to download and verify a profile document",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		watcherLastSuccessTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profile_watcher_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful SSM poll",
		}),
		watcherStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profile_watcher_stale",
			Help: "Whether the profile watcher is stale (1) or healthy (0)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.httpPanicTotal,
		m.buildInfo,
		m.profilingActive,
		m.ratelimitDenied,
		m.ratelimitCapacity,
		m.ratelimitErrors,
		m.ratelimitKeys,
		m.ratelimitSwept,
		m.walletCopies,
		m.validationsTotal,
		m.particlePoints,
		m.profileSource,
		m.profileInfo,
		m.profileLoadedTs,
		m.profileSigned,
		m.watcherPollsTotal,
		m.watcherSwapsTotal,
		m.watcherErrorsTotal,
		m.profileLoadDuration,
		m.watcherLastSuccessTs,
		m.watcherStale,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry exposes the registry for tests and extra collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

func (m *ServerMetrics) IncHttpPanic() { m.httpPanicTotal.Inc() }

// SetBuildInfoFromVersion is called once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         vi.AppName,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildID,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) { m.profilingActive.Set(boolGauge(active)) }

func (m *ServerMetrics) IncRateLimitDenied(limiter string) {
	m.ratelimitDenied.WithLabelValues(limiter).Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity(limiter string) {
	m.ratelimitCapacity.WithLabelValues(limiter).Inc()
}

func (m *ServerMetrics) IncRateLimitError(limiter string) {
	m.ratelimitErrors.WithLabelValues(limiter).Inc()
}

func (m *ServerMetrics) SetRateLimitKeys(limiter string, n int) {
	m.ratelimitKeys.WithLabelValues(limiter).Set(float64(n))
}

func (m *ServerMetrics) AddRateLimitSwept(n int) { m.ratelimitSwept.Add(float64(n)) }

func (m *ServerMetrics) IncWalletCopy(chain string) { m.walletCopies.WithLabelValues(chain).Inc() }

func (m *ServerMetrics) IncValidation(chain, result string) {
	m.validationsTotal.WithLabelValues(chain, result).Inc()
}

func (m *ServerMetrics) SetParticlePoints(n int) { m.particlePoints.Set(float64(n)) }

// SetProfile records the active profile document. Previous label values
// are cleared so only one document is reported at a time.
func (m *ServerMetrics) SetProfile(source, version, sha256 string, loadedAt time.Time, signed bool) {
	m.profileSource.Reset()
	m.profileSource.WithLabelValues(source).Set(1)
	m.profileInfo.Reset()
	m.profileInfo.WithLabelValues(version, sha256).Set(1)
	m.profileLoadedTs.Set(float64(loadedAt.Unix()))
	m.profileSigned.Set(boolGauge(signed))
}

func (m *ServerMetrics) IncWatcherPolls() { m.watcherPollsTotal.Inc() }

func (m *ServerMetrics) IncWatcherSwaps() { m.watcherSwapsTotal.Inc() }

func (m *ServerMetrics) IncWatcherError(errType string) {
	m.watcherErrorsTotal.WithLabelValues(errType).Inc()
}

func (m *ServerMetrics) ObserveProfileLoadDuration(seconds float64) {
	m.profileLoadDuration.Observe(seconds)
}

func (m *ServerMetrics) SetWatcherLastSuccess(unixSeconds float64) {
	m.watcherLastSuccessTs.Set(unixSeconds)
}

func (m *ServerMetrics) SetWatcherStale(stale bool) { m.watcherStale.Set(boolGauge(stale)) }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
