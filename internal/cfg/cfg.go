// Package cfg binds server configuration to flags with environment
// fallbacks and validates it as a whole before anything starts.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/wallet"
)

// EnvPrefix is prepended to upper-cased flag names: -http-port reads VARDO_HTTP_PORT.
const EnvPrefix = "VARDO_"

// Rate limiter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort         int
	AdminPort        int
	TrustedProxyHops int
	DrainDelay       time.Duration

	EnablePprof     bool
	EnablePyroscope bool
	EnableTracing   bool
	PyroServer      string
	PyroTenantID    string
	OTLPEndpoint    string
	TraceSample     float64

	ParticleCount int
	ParticleSeed  uint64

	RateLimitMax     int
	RateLimitWindow  time.Duration
	RateLimitBackend string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPrefix      string

	FloodRate        float64
	FloodBurst       int
	FloodTTL         time.Duration
	FloodMaxVisitors int

	ProfileFile          string
	EnableProfileUpdates bool
	ProfileSSMParam      string
	ProfileS3Bucket      string
	ProfileS3Prefix      string
	ProfileSigningKeyARN string
	ProfilePollInterval  time.Duration

	SolanaNetwork string
	SolanaRPCURL  string
}

// Register binds every field to fs with its default.
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 0, "reverse proxies in front of the server whose X-Forwarded-For is trusted (0..5)")
	fs.DurationVar(&c.DrainDelay, "drain-delay", 60*time.Second, "time to fail readiness before shutting listeners down")

	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")

	fs.IntVar(&c.ParticleCount, "particle-count", 2000, "points in the particle field (1..100000)")
	fs.Uint64Var(&c.ParticleSeed, "particle-seed", 0, "particle field seed (0 picks one at startup)")

	fs.IntVar(&c.RateLimitMax, "ratelimit-max", 5, "requests allowed per key per window for wallet actions")
	fs.DurationVar(&c.RateLimitWindow, "ratelimit-window", time.Minute, "sliding window length for wallet actions")
	fs.StringVar(&c.RateLimitBackend, "ratelimit-backend", BackendMemory, "memory|redis")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "redis host:port for the redis rate limit backend")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "redis password")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "redis database number")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", "vardo:ratelimit:", "key prefix for rate limit sorted sets")

	fs.Float64Var(&c.FloodRate, "flood-rate", 20, "site-wide requests per second allowed per client IP")
	fs.IntVar(&c.FloodBurst, "flood-burst", 40, "site-wide burst per client IP")
	fs.DurationVar(&c.FloodTTL, "flood-ttl", 5*time.Minute, "idle time before a client IP is forgotten")
	fs.IntVar(&c.FloodMaxVisitors, "flood-max-visitors", 100000, "client IPs tracked before new ones are refused")

	fs.StringVar(&c.ProfileFile, "profile-file", "", "local profile JSON to serve instead of the built-in profile")
	fs.BoolVar(&c.EnableProfileUpdates, "enable-profile-updates", false, "Load and hot-swap the profile from S3/SSM")
	fs.StringVar(&c.ProfileSSMParam, "profile-ssm-param", "/app/vardo-web/profile/sha256", "ssm parameter holding the current profile document sha256")
	fs.StringVar(&c.ProfileS3Bucket, "profile-s3-bucket", "", "s3 bucket holding profile documents")
	fs.StringVar(&c.ProfileS3Prefix, "profile-s3-prefix", "apps/vardo-web/profiles", "s3 prefix (key) of profile documents")
	fs.StringVar(&c.ProfileSigningKeyARN, "profile-signing-key-arn", "", "KMS key ARN for profile signature verification")
	fs.DurationVar(&c.ProfilePollInterval, "profile-poll-interval", 30*time.Second, "how often to poll SSM for a new profile")

	fs.StringVar(&c.SolanaNetwork, "solana-network", string(wallet.Devnet), "devnet|testnet|mainnet-beta")
	fs.StringVar(&c.SolanaRPCURL, "solana-rpc-url", "", "RPC endpoint override (defaults to the public cluster URL)")
}

// FillFromEnv sets every flag not passed on the command line from
// PREFIX_FLAG_NAME. Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := EnvKey(prefix, f.Name)
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s", f.Name, f.Value.String(), key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s: %v", f.Name, key, err)
			}
		}
	})
}

// EnvKey maps a flag name to its environment variable.
func EnvKey(prefix, flagName string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// Validate reports every invalid field joined into one error.
func Validate(c App) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		add("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort)
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		add("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort)
	}
	if c.AdminPort == c.HTTPPort {
		add("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort)
	}
	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 5 {
		add("TRUSTED_PROXY_HOPS must be 0..5 (got %d)", c.TrustedProxyHops)
	}
	if c.DrainDelay < 0 {
		add("DRAIN_DELAY must not be negative (got %s)", c.DrainDelay)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		add("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks)
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		add("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample)
	}
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			add("PYRO_SERVER required when ENABLE_PYROSCOPE=true")
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			add("PYRO_SERVER must be a URL (got %q)", c.PyroServer)
		}
		if c.PyroTenantID == "" {
			add("PYRO_TENANT required when ENABLE_PYROSCOPE=true")
		}
	}
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			add("OTLP_ENDPOINT required when ENABLE_TRACING=true")
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			add("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err)
		}
	}

	if c.ParticleCount < 1 || c.ParticleCount > 100000 {
		add("PARTICLE_COUNT must be 1..100000 (got %d)", c.ParticleCount)
	}

	if c.RateLimitMax <= 0 {
		add("RATELIMIT_MAX must be positive (got %d)", c.RateLimitMax)
	}
	if c.RateLimitWindow <= 0 {
		add("RATELIMIT_WINDOW must be positive (got %s)", c.RateLimitWindow)
	}
	switch c.RateLimitBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			add("REDIS_ADDR required when RATELIMIT_BACKEND=redis")
		} else if _, _, err := net.SplitHostPort(c.RedisAddr); err != nil {
			add("REDIS_ADDR must be host:port (got %q): %v", c.RedisAddr, err)
		}
		if c.RateLimitWindow > 0 && c.RateLimitWindow < time.Millisecond {
			add("RATELIMIT_WINDOW must be at least 1ms with the redis backend (got %s)", c.RateLimitWindow)
		}
		if c.RedisDB < 0 {
			add("REDIS_DB must not be negative (got %d)", c.RedisDB)
		}
	default:
		add("RATELIMIT_BACKEND must be %s or %s (got %q)", BackendMemory, BackendRedis, c.RateLimitBackend)
	}
	if c.FloodRate <= 0 || c.FloodBurst <= 0 {
		add("FLOOD_RATE and FLOOD_BURST must be positive (got %g, %d)", c.FloodRate, c.FloodBurst)
	}
	if c.FloodTTL <= 0 {
		add("FLOOD_TTL must be positive (got %s)", c.FloodTTL)
	}
	if c.FloodMaxVisitors <= 0 {
		add("FLOOD_MAX_VISITORS must be positive (got %d)", c.FloodMaxVisitors)
	}

	if c.EnableProfileUpdates {
		if c.ProfileSSMParam == "" {
			add("PROFILE_SSM_PARAM is required when ENABLE_PROFILE_UPDATES=true")
		}
		if c.ProfileS3Bucket == "" {
			add("PROFILE_S3_BUCKET is required when ENABLE_PROFILE_UPDATES=true")
		}
		if c.ProfileSigningKeyARN == "" {
			add("PROFILE_SIGNING_KEY_ARN is required when ENABLE_PROFILE_UPDATES=true")
		}
		if c.ProfilePollInterval < time.Second {
			add("PROFILE_POLL_INTERVAL must be at least 1s (got %s)", c.ProfilePollInterval)
		}
	}

	if _, err := wallet.ParseNetwork(c.SolanaNetwork); err != nil {
		errs = append(errs, fmt.Errorf("invalid SOLANA_NETWORK: %w", err))
	}
	if c.SolanaRPCURL != "" && !wallet.IsValidURL(c.SolanaRPCURL) {
		add("SOLANA_RPC_URL must be an absolute http(s) URL (got %q)", c.SolanaRPCURL)
	}

	return errors.Join(errs...)
}
