package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"github.com/vardo/vardo-web/internal/cfg"
	"github.com/vardo/vardo-web/internal/cryptoutil"
	"github.com/vardo/vardo-web/internal/health"
	"github.com/vardo/vardo-web/internal/httpmw"
	"github.com/vardo/vardo-web/internal/httpserver"
	"github.com/vardo/vardo-web/internal/log"
	"github.com/vardo/vardo-web/internal/metrics"
	"github.com/vardo/vardo-web/internal/opshttp"
	"github.com/vardo/vardo-web/internal/otelx"
	"github.com/vardo/vardo-web/internal/particle"
	"github.com/vardo/vardo-web/internal/prof"
	"github.com/vardo/vardo-web/internal/profile"
	"github.com/vardo/vardo-web/internal/ratelimit"
	"github.com/vardo/vardo-web/internal/siteapi"
	"github.com/vardo/vardo-web/internal/sitehandler"
	v "github.com/vardo/vardo-web/internal/version"
	"github.com/vardo/vardo-web/internal/wallet"
)

// sweepInterval is how often idle keys are dropped from the in-memory window.
const sweepInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildID, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Validate already checked both levels
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               vi.AppName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSONFormat:        conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_id", vi.BuildID,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"trusted_proxy_hops", conf.TrustedProxyHops,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
		"particle_count", conf.ParticleCount,
		"ratelimit_backend", conf.RateLimitBackend,
		"ratelimit_max", conf.RateLimitMax,
		"ratelimit_window", conf.RateLimitWindow,
		"enable_profile_updates", conf.EnableProfileUpdates,
		"profile_file", conf.ProfileFile,
		"profile_ssm_param", conf.ProfileSSMParam,
		"profile_s3_bucket", conf.ProfileS3Bucket,
		"profile_s3_prefix", conf.ProfileS3Prefix,
		"solana_network", conf.SolanaNetwork,
	)

	stopProf, profErr := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       vi.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       vi.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"build_id":  vi.BuildID,
			"source":    "go-agent",
		},
	})
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer func() { stopProf() }()

	// Insecure is true because we are only writing to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   vi.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	m := metrics.New()
	m.SetBuildInfoFromVersion("server", vi)
	m.SetProfilingActive(conf.EnablePyroscope && profErr == nil)

	// profile: built-in or local file first, then the published document
	profileMgr := profile.NewManager()
	if err := seedProfile(ctx, L, conf, profileMgr); err != nil {
		L.Error(ctx, err, "failed to load profile file", "profile_file", conf.ProfileFile)
		os.Exit(1)
	}
	if conf.EnableProfileUpdates {
		if err := startProfileUpdates(ctx, L, conf, profileMgr, m); err != nil {
			L.Error(ctx, err, "failed to set up profile updates")
			os.Exit(1)
		}
	}
	recordProfile(m, profileMgr)

	field := newField(conf)
	m.SetParticlePoints(field.Len())

	network, _ := wallet.ParseNetwork(conf.SolanaNetwork)

	walletLimiter, closeLimiter, err := newWalletLimiter(ctx, L, conf, m)
	if err != nil {
		L.Error(ctx, err, "failed to create wallet rate limiter")
		os.Exit(1)
	}
	defer closeLimiter()

	api := siteapi.New(siteapi.Options{
		Logger:   L,
		Profiles: profileMgr,
		Field:    field,
		Metrics:  m,
		Limiter:  walletLimiter,
		// only the sliding window's length is advertised, never its budget
		RetryAfter: conf.RateLimitWindow,
		OnDenied: func(key string) {
			m.IncRateLimitDenied("wallet")
		},
		OnLimiterError: func(ctx context.Context, key string, err error) {
			m.IncRateLimitError("wallet")
			L.Warn(ctx, "wallet rate limiter unavailable, allowing request", "error", err)
		},
		Network: network,
		RPCURL:  conf.SolanaRPCURL,
	})

	siteHandler, err := sitehandler.New(sitehandler.Options{
		Logger:   L,
		Profiles: profileMgr,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	var gate health.ShutdownGate

	// both the shutdown gate and an active profile must pass
	readiness := health.All(
		gate.Probe(),
		health.CheckFunc(func(ctx context.Context) error {
			return profileMgr.ReadyErr()
		}),
	)

	// site-wide flood guard per client IP
	floodLimiter := ratelimit.NewIPLimiter(ctx,
		ratelimit.WithRate(conf.FloodRate, conf.FloodBurst),
		ratelimit.WithTTL(conf.FloodTTL),
		ratelimit.WithMaxVisitors(conf.FloodMaxVisitors),
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied("flood")
		}),
		// only log the first time an ip is denied each time it is cleaned from the bucket
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			m.IncRateLimitCapacity("flood")
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
	)

	siteHTTPStop, err := httpserver.Start(ctx, httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  floodLimiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops},
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		APIRoutes:    api.RegisterRoutes,
		SiteHandler:  siteHandler,
		ProfileInfo:  profileMgr,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener port")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// admin listener rejects public and forwarded requests in middleware in
	// case the security group or load balancer is ever misconfigured
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		// worst case systemd kills the process after its start timeout
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	// wait for ctrl+c / sigterm
	<-ctx.Done()
	stop()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness so the load balancer stops sending new requests
	gate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed, draining", "drain_delay", conf.DrainDelay)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.DrainDelay):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "app http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()
	closeLimiter()

	L.Info(context.Background(), "shutdown complete")
}

// seedProfile installs the local profile file, or the built-in profile.
func seedProfile(ctx context.Context, L log.Logger, conf cfg.App, mgr *profile.Manager) error {
	if conf.ProfileFile == "" {
		mgr.Set(profile.DefaultSnapshot())
		L.Info(ctx, "serving built-in profile")
		return nil
	}
	snap, err := profile.LoadFile(conf.ProfileFile)
	if err != nil {
		return err
	}
	mgr.Set(*snap)
	L.Info(ctx, "loaded profile file", "profile_version", snap.Meta.Version, "profile_hash", snap.Meta.SHA256)
	return nil
}

// startProfileUpdates loads the published profile and keeps polling for new
// ones. A failed first load keeps the seeded profile.
func startProfileUpdates(ctx context.Context, L log.Logger, conf cfg.App, mgr *profile.Manager, m *metrics.ServerMetrics) error {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}

	var verifier profile.Verifier
	if conf.ProfileSigningKeyARN != "" {
		verifier = cryptoutil.NewKMSVerifier(kms.NewFromConfig(awsCfg), conf.ProfileSigningKeyARN)
	}

	loader, err := profile.NewLoader(ctx, profile.LoaderOptions{
		Logger:    L,
		SSMParam:  conf.ProfileSSMParam,
		S3Bucket:  conf.ProfileS3Bucket,
		S3Prefix:  conf.ProfileS3Prefix,
		Verifier:  verifier,
		S3Client:  s3.NewFromConfig(awsCfg),
		SSMClient: ssm.NewFromConfig(awsCfg),
	})
	if err != nil {
		return err
	}

	start := time.Now()
	if err := loader.LoadIntoManager(ctx, mgr); err != nil {
		m.IncWatcherError("initial_load")
		L.Error(ctx, err, "failed to load published profile, keeping seeded profile")
	} else {
		m.ObserveProfileLoadDuration(time.Since(start).Seconds())
		L.Info(ctx, "loaded published profile",
			"profile_version", mgr.ProfileVersion(),
			"profile_hash", mgr.ProfileHash(),
		)
	}

	watcher := profile.NewWatcher(profile.WatcherOptions{
		Logger:       L,
		Loader:       loader,
		Manager:      mgr,
		PollInterval: conf.ProfilePollInterval,
		Metrics:      m,
		OnSwap: func(snap profile.Snapshot) {
			m.SetProfile(string(snap.Meta.Source), snap.Meta.Version, snap.Meta.SHA256, snap.Meta.LoadedAt, snap.Meta.Signed)
		},
	})
	go func() { _ = watcher.Run(ctx) }()
	return nil
}

func recordProfile(m *metrics.ServerMetrics, mgr *profile.Manager) {
	if snap, ok := mgr.Get(); ok {
		m.SetProfile(string(snap.Meta.Source), snap.Meta.Version, snap.Meta.SHA256, snap.Meta.LoadedAt, snap.Meta.Signed)
	}
}

func newField(conf cfg.App) *particle.Field {
	if conf.ParticleSeed != 0 {
		return particle.NewSeeded(conf.ParticleCount, conf.ParticleSeed)
	}
	return particle.New(conf.ParticleCount, nil)
}

// newWalletLimiter builds the sliding-window limiter for wallet actions.
// The returned close func is safe to call more than once.
func newWalletLimiter(ctx context.Context, L log.Logger, conf cfg.App, m *metrics.ServerMetrics) (ratelimit.Keyed, func(), error) {
	if conf.RateLimitBackend == cfg.BackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
		})
		w, err := ratelimit.NewRedis(client, conf.RateLimitMax, conf.RateLimitWindow, ratelimit.WithRedisPrefix(conf.RedisPrefix))
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := w.Ping(pingCtx); err != nil {
			// requests are let through while redis is unreachable
			L.Warn(ctx, "redis unreachable at startup", "redis_addr", conf.RedisAddr, "error", err)
		}
		var once sync.Once
		return w, func() { once.Do(func() { _ = client.Close() }) }, nil
	}

	w, err := ratelimit.New(conf.RateLimitMax, conf.RateLimitWindow)
	if err != nil {
		return nil, nil, err
	}
	go w.RunSweeper(ctx, sweepInterval, func(dropped int) {
		m.AddRateLimitSwept(dropped)
		m.SetRateLimitKeys("wallet", w.Len())
	})
	return w, func() {}, nil
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		_ = conn.Close()
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
