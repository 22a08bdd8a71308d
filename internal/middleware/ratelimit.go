package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
    "golang.org/x/time/rate"

    "github.com/iliyamo/salon-booking/internal/config"
)

var limiterScript = redis.NewScript(`
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

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of one bucket check.
type decision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

// NewRateLimiter limits requests with a token bucket per key.  The bucket
// lives in Redis when rdb is non-nil so that all instances share it.
// Without Redis, and with LocalFallback set, each process keeps its own
// x/time/rate limiters.  Redis errors let the request through.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    if !cfg.Enabled {
        return passthrough
    }
    var check func(c echo.Context, key string) (decision, bool)
    switch {
    case rdb != nil:
        check = redisCheck(cfg, rdb, log)
    case cfg.LocalFallback:
        check = newLocalLimiters(cfg).check
    default:
        return passthrough
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            d, ok := check(c, key)
            if !ok {
                return next(c)
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))

            if !d.allowed {
                secs := int(math.Ceil(d.retry.Seconds()))
                if secs < 0 { secs = 0 }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    log.Debug("rate limit block", zap.String("key", key), zap.Duration("retry", d.retry))
                }
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            if cfg.Debug {
                c.Response().Header().Set("X-RateLimit-Key", key)
            }
            return next(c)
        }
    }
}

func redisCheck(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) func(echo.Context, string) (decision, bool) {
    return func(c echo.Context, key string) (decision, bool) {
        args := []interface{}{
            time.Now().UnixMilli(),
            cfg.Capacity,
            cfg.RefillTokens,
            cfg.RefillInterval.Milliseconds(),
            int64(cfg.TTL / time.Second),
        }
        vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
        if err != nil {
            log.Warn("rate limit: redis error", zap.String("key", key), zap.Error(err))
            return decision{}, false
        }
        arr, ok := vals.([]interface{})
        if !ok || len(arr) != 3 {
            log.Warn("rate limit: unexpected script result", zap.String("key", key), zap.Any("result", vals))
            return decision{}, false
        }
        return decision{
            allowed:   fmt.Sprint(arr[0]) == "1",
            remaining: asInt64(arr[1]),
            retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
        }, true
    }
}

// localLimiters holds one limiter per key for the in-process fallback.
// Keys idle for longer than idle are swept on access; by then their bucket
// has refilled, so a fresh limiter behaves the same.
type localLimiters struct {
    mu        sync.Mutex
    entries   map[string]*localEntry
    limit     rate.Limit
    burst     int
    idle      time.Duration
    lastSweep time.Time
    now       func() time.Time
}

type localEntry struct {
    lim      *rate.Limiter
    lastSeen time.Time
}

func newLocalLimiters(cfg config.RateLimitConfig) *localLimiters {
    every := cfg.RefillInterval / time.Duration(cfg.RefillTokens)
    idle := cfg.TTL
    if full := every * time.Duration(cfg.Capacity); idle < full {
        idle = full
    }
    return &localLimiters{
        entries: make(map[string]*localEntry),
        limit:   rate.Every(every),
        burst:   cfg.Capacity,
        idle:    idle,
        now:     time.Now,
    }
}

func (l *localLimiters) get(key string, now time.Time) *rate.Limiter {
    l.mu.Lock()
    defer l.mu.Unlock()
    if now.Sub(l.lastSweep) >= l.idle {
        l.sweep(now)
    }
    e, ok := l.entries[key]
    if !ok {
        e = &localEntry{lim: rate.NewLimiter(l.limit, l.burst)}
        l.entries[key] = e
    }
    e.lastSeen = now
    return e.lim
}

// sweep drops idle keys.  Caller holds mu.
func (l *localLimiters) sweep(now time.Time) {
    for k, e := range l.entries {
        if now.Sub(e.lastSeen) >= l.idle {
            delete(l.entries, k)
        }
    }
    l.lastSweep = now
}

func (l *localLimiters) check(_ echo.Context, key string) (decision, bool) {
    now := l.now()
    lim := l.get(key, now)
    r := lim.ReserveN(now, 1)
    if delay := r.DelayFrom(now); delay > 0 {
        r.CancelAt(now)
        return decision{allowed: false, retry: delay}, true
    }
    remaining := int64(lim.TokensAt(now))
    if remaining < 0 { remaining = 0 }
    return decision{allowed: true, remaining: remaining}, true
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64: return t
    case int32: return int64(t)
    case int: return int64(t)
    case float64: return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
    }
    return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    route := c.Request().Method + " " + c.Path()

    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", callerID(c))
    case "ip_user_route":
        parts = append(parts, "ip", ip, "user", callerID(c), "route", route)
    default: // "ip_route"
        parts = append(parts, "ip", ip, "route", route)
    }
    return strings.Join(parts, ":")
}
