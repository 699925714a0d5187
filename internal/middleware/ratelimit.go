package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/iliyamo/movie-library/internal/config"
)

// bucketScript refills the bucket by whole intervals, takes one token when
// available and reports {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals * refill_tokens)
	last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

type verdict struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type limiter interface {
	take(ctx context.Context, key string) (verdict, error)
}

type redisBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b redisBucket) take(ctx context.Context, key string) (verdict, error) {
	vals, err := bucketScript.Run(ctx, b.rdb, []string{key},
		time.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(vals) != 3 {
		return verdict{}, fmt.Errorf("unexpected limiter reply %v", vals)
	}
	return verdict{
		allowed:   asInt64(vals[0]) == 1,
		remaining: asInt64(vals[1]),
		retry:     time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

// localBuckets keeps one x/time/rate limiter per key for a single process.
// Idle limiters are swept once they have been unused for the configured TTL.
type localBuckets struct {
	cfg   config.RateLimitConfig
	mu    sync.Mutex
	items map[string]*localEntry
	swept time.Time
}

type localEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	return &localBuckets{cfg: cfg, items: make(map[string]*localEntry), swept: time.Now()}
}

func (l *localBuckets) take(_ context.Context, key string) (verdict, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.cfg.TTL {
		for k, e := range l.items {
			if now.Sub(e.seen) > l.cfg.TTL {
				delete(l.items, k)
			}
		}
		l.swept = now
	}

	e, ok := l.items[key]
	if !ok {
		every := l.cfg.RefillInterval / time.Duration(l.cfg.RefillTokens)
		e = &localEntry{lim: rate.NewLimiter(rate.Every(every), l.cfg.Capacity)}
		l.items[key] = e
	}
	e.seen = now

	r := e.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return verdict{retry: delay}, nil
	}
	return verdict{allowed: true, remaining: int64(e.lim.TokensAt(now))}, nil
}

// NewTokenBucket limits requests per key using a Redis token bucket shared
// by all instances. Without Redis, or when a Redis call fails, it falls back
// to in-process buckets if LocalFallback is set and lets the request through
// otherwise.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return passthrough
	}
	var (
		primary  limiter
		fallback limiter
	)
	if rdb != nil {
		primary = redisBucket{cfg: cfg, rdb: rdb}
	}
	if cfg.LocalFallback {
		fallback = newLocalBuckets(cfg)
	}
	if primary == nil {
		primary, fallback = fallback, nil
	}
	if primary == nil {
		return passthrough
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			v, err := primary.take(c.Request().Context(), key)
			if err != nil && fallback != nil {
				if cfg.Debug {
					c.Logger().Warnf("ratelimit: redis error for key=%s, using local bucket: %v", key, err)
				}
				v, err = fallback.take(c.Request().Context(), key)
			}
			if err != nil {
				c.Logger().Warnf("ratelimit: key=%s not limited: %v", key, err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !v.allowed {
				secs := int(math.Ceil(v.retry.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "Too many requests.",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := currentUserID(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
