package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/vardo/vardo-web/internal/cryptoutil"
	"github.com/vardo/vardo-web/internal/log"
)

const (
	DefaultPollInterval   = 30 * time.Second
	DefaultStaleThreshold = 30 * time.Minute

	maxBackoff = 5 * time.Minute
)

type pollResult int

const (
	pollNoChange pollResult = iota
	pollSwapped
	pollSSMError
	pollLoadError
	pollValidationError
)

// Fetcher is what the Watcher needs from a Loader.
type Fetcher interface {
	FetchCurrentHash(ctx context.Context) (string, error)
	Load(ctx context.Context, hash string) (*Snapshot, error)
}

// WatcherMetrics is implemented by the metrics package.
type WatcherMetrics interface {
	IncWatcherPolls()
	IncWatcherSwaps()
	IncWatcherError(errType string)
	ObserveProfileLoadDuration(seconds float64)
	SetWatcherLastSuccess(unixSeconds float64)
	SetWatcherStale(stale bool)
}

type WatcherOptions struct {
	Logger       log.Logger
	Loader       Fetcher
	Manager      *Manager
	PollInterval time.Duration

	// OnSwap runs synchronously on the poll goroutine after a swap.
	// A panic in it is logged and swallowed.
	OnSwap func(snap Snapshot)

	Metrics WatcherMetrics

	// StaleThreshold is how long without a successful SSM poll before the
	// profile is reported stale. Zero uses DefaultStaleThreshold.
	StaleThreshold time.Duration
}

// Watcher polls SSM and hot-swaps new profile documents into the Manager.
type Watcher struct {
	loader   Fetcher
	manager  *Manager
	logger   log.Logger
	interval time.Duration
	onSwap   func(Snapshot)
	metrics  WatcherMetrics
	now      func() time.Time

	currentHash     string
	consecutiveErrs int

	staleThreshold time.Duration
	lastSuccessAt  time.Time
	staleLogged    bool

	pollCount int64
	swapCount int64
}

func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	staleThreshold := opts.StaleThreshold
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}

	// seed from the manager so the first poll does not reload the startup document
	currentHash := ""
	if snap, ok := opts.Manager.Get(); ok {
		currentHash = snap.Meta.SHA256
	}

	return &Watcher{
		loader:         opts.Loader,
		manager:        opts.Manager,
		logger:         opts.Logger,
		interval:       interval,
		onSwap:         opts.OnSwap,
		metrics:        opts.Metrics,
		now:            time.Now,
		currentHash:    currentHash,
		staleThreshold: staleThreshold,
		lastSuccessAt:  time.Now(),
	}
}

// Run polls until ctx is cancelled. Launch as: go watcher.Run(ctx)
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info(ctx, "profile watcher starting",
		"poll_interval", w.interval.String(),
		"current_hash", truncHash(w.currentHash),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "profile watcher stopping",
				"reason", ctx.Err(),
				"polls", w.pollCount,
				"swaps", w.swapCount,
			)
			return ctx.Err()
		case <-ticker.C:
			result := w.checkOnce(ctx)
			if next, changed := w.afterPoll(ctx, result); changed {
				ticker.Reset(next)
			}
		}
	}
}

// afterPoll updates backoff and staleness state and reports whether the
// poll interval must change.
func (w *Watcher) afterPoll(ctx context.Context, result pollResult) (time.Duration, bool) {
	if result == pollSSMError {
		w.consecutiveErrs++
		w.checkStale(ctx)
		backoff := w.backoffDuration()
		w.logger.Warn(ctx, "profile watcher: backing off",
			"consecutive_errors", w.consecutiveErrs,
			"next_poll_in", backoff.String(),
		)
		return backoff, true
	}

	if w.staleLogged {
		w.logger.Info(ctx, "profile watcher: staleness recovered")
		w.staleLogged = false
		if w.metrics != nil {
			w.metrics.SetWatcherStale(false)
		}
	}
	if w.consecutiveErrs > 0 {
		w.logger.Info(ctx, "profile watcher: recovered, resuming normal interval",
			"had_consecutive_errors", w.consecutiveErrs,
		)
		w.consecutiveErrs = 0
		return w.interval, true
	}
	return 0, false
}

func (w *Watcher) checkStale(ctx context.Context) {
	since := w.now().Sub(w.lastSuccessAt)
	if since <= w.staleThreshold || w.staleLogged {
		return
	}
	w.logger.Error(ctx, fmt.Errorf("last successful SSM poll was %s ago", since.Truncate(time.Second)),
		"profile watcher: profile is stale, unable to verify freshness",
	)
	w.staleLogged = true
	if w.metrics != nil {
		w.metrics.SetWatcherStale(true)
	}
}

func (w *Watcher) checkOnce(ctx context.Context) pollResult {
	w.pollCount++
	if w.metrics != nil {
		w.metrics.IncWatcherPolls()
	}

	hash, err := w.loader.FetchCurrentHash(ctx)
	if err != nil {
		w.logger.Error(ctx, err, "profile watcher: SSM poll failed")
		if w.metrics != nil {
			w.metrics.IncWatcherError("ssm")
		}
		return pollSSMError
	}

	now := w.now()
	w.lastSuccessAt = now
	if w.metrics != nil {
		w.metrics.SetWatcherLastSuccess(float64(now.Unix()))
	}

	if cryptoutil.HashEqual(hash, w.currentHash) {
		return pollNoChange
	}

	w.logger.Info(ctx, "profile watcher: new document hash detected",
		"old_hash", truncHash(w.currentHash),
		"new_hash", truncHash(hash),
	)

	start := w.now()
	snap, err := w.loader.Load(ctx, hash)
	if w.metrics != nil {
		w.metrics.ObserveProfileLoadDuration(w.now().Sub(start).Seconds())
	}
	if err != nil {
		w.logger.Error(ctx, err, "profile watcher: failed to load document",
			"hash", truncHash(hash),
		)
		if w.metrics != nil {
			w.metrics.IncWatcherError("load")
		}
		return pollLoadError
	}

	if err := snap.Profile.Validate(); err != nil {
		w.logger.Error(ctx, err, "profile watcher: new document failed validation, keeping current profile",
			"rejected_hash", truncHash(hash),
			"current_hash", truncHash(w.currentHash),
		)
		if w.metrics != nil {
			w.metrics.IncWatcherError("validation")
		}
		return pollValidationError
	}

	oldHash := w.currentHash
	w.manager.Set(*snap)
	w.currentHash = hash
	w.swapCount++
	if w.metrics != nil {
		w.metrics.IncWatcherSwaps()
	}

	w.logger.Info(ctx, "profile watcher: document swapped",
		"old_hash", truncHash(oldHash),
		"new_hash", truncHash(hash),
		"version", w.manager.ProfileVersion(),
		"total_swaps", w.swapCount,
	)

	if w.onSwap != nil {
		if active, ok := w.manager.Get(); ok {
			w.notify(ctx, *active)
		}
	}
	return pollSwapped
}

func (w *Watcher) notify(ctx context.Context, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, fmt.Errorf("OnSwap panic: %v", r),
				"profile watcher: OnSwap callback panicked, continuing",
				"hash", truncHash(snap.Meta.SHA256),
			)
		}
	}()
	w.onSwap(snap)
}

// backoffDuration doubles the interval per consecutive error, capped at maxBackoff.
func (w *Watcher) backoffDuration() time.Duration {
	d := w.interval
	for i := 0; i < w.consecutiveErrs && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func truncHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
