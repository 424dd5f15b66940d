package ratelimit

import (
	"context"
	_ "embed"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vardo/vardo-web/internal/xerrors"
)

//go:embed sliding_window.lua
var slidingWindowLua string

var slidingWindowScript = redis.NewScript(slidingWindowLua)

const DefaultRedisPrefix = "vardo:ratelimit:"

// MinRedisWindow is the smallest window NewRedis accepts. Scores and
// expiries are kept in whole milliseconds.
const MinRedisWindow = time.Millisecond

// RedisWindow is Window's policy kept in Redis sorted sets, one per key,
// so every instance behind the load balancer shares the same budget. The
// prune, count and add run in one script and are atomic per key.
type RedisWindow struct {
	client redis.Cmdable
	prefix string
	max    int
	window time.Duration
	now    func() time.Time
}

type RedisOption func(*RedisWindow)

func WithRedisPrefix(prefix string) RedisOption {
	return func(w *RedisWindow) {
		if prefix != "" {
			w.prefix = prefix
		}
	}
}

func WithRedisClock(now func() time.Time) RedisOption {
	return func(w *RedisWindow) {
		if now != nil {
			w.now = now
		}
	}
}

func NewRedis(client redis.Cmdable, maxRequests int, window time.Duration, opts ...RedisOption) (*RedisWindow, error) {
	if maxRequests <= 0 || window < MinRedisWindow {
		return nil, ErrInvalidLimit
	}
	if client == nil {
		return nil, xerrors.New("ratelimit: redis client is required")
	}
	w := &RedisWindow{
		client: client,
		prefix: DefaultRedisPrefix,
		max:    maxRequests,
		window: window,
		now:    time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

func (w *RedisWindow) MaxRequests() int { return w.max }

func (w *RedisWindow) Window() time.Duration { return w.window }

func (w *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	now := w.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()
	res, err := slidingWindowScript.Run(ctx, w.client,
		[]string{w.prefix + key},
		now, w.window.Milliseconds(), w.max, member,
	).Int64()
	if err != nil {
		return false, xerrors.Wrapf(err, "ratelimit: redis check for key %q", key)
	}
	return res == 1, nil
}

// IsAllowed is Allow with a background context. It admits the request when
// Redis cannot be reached.
func (w *RedisWindow) IsAllowed(key string) bool {
	ok, err := w.Allow(context.Background(), key)
	return ok || err != nil
}

func (w *RedisWindow) Clear(ctx context.Context, key string) error {
	return xerrors.Wrap(w.client.Del(ctx, w.prefix+key).Err(), "ratelimit: redis clear")
}

// ClearAll deletes every key under the prefix.
func (w *RedisWindow) ClearAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := w.client.Scan(ctx, cursor, w.prefix+"*", 256).Result()
		if err != nil {
			return xerrors.Wrap(err, "ratelimit: redis scan")
		}
		if len(keys) > 0 {
			if err := w.client.Del(ctx, keys...).Err(); err != nil {
				return xerrors.Wrap(err, "ratelimit: redis clear all")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks that Redis is reachable.
func (w *RedisWindow) Ping(ctx context.Context) error {
	return xerrors.Wrap(w.client.Ping(ctx).Err(), "ratelimit: redis ping")
}
