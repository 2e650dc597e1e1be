package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/raffle-console/internal/config"
)

// tokenBucket refills and takes one token atomically.  It returns
// {allowed, tokens_left, retry_after_ms}.
var tokenBucket = redis.NewScript(`
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

    local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
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

// NewTokenBucket limits how fast one operator can hit mutating routes, so
// a double-clicked sale or payment does not fan out into several backend
// calls.  Without Redis it lets everything through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if len(cfg.Methods) > 0 && !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            key := buildRateKey(cfg, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
            if err != nil {
                // Fail open: a Redis hiccup must not block sales.
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] redis error for key=%s: %v", key, err)
                }
                return next(c)
            }
            allowed, remaining, retryMs, ok := parseBucket(vals)
            if !ok {
                c.Logger().Warnf("[ratelimit] unexpected script result for key=%s: %#v", key, vals)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                h.Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    c.Logger().Infof("[ratelimit] block key=%s retry=%dms", key, retryMs)
                }
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too many requests, slow down",
                    "retriable":   true,
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

func parseBucket(vals interface{}) (allowed bool, remaining, retryMs int64, ok bool) {
    arr, isArr := vals.([]interface{})
    if !isArr || len(arr) != 3 {
        return false, 0, 0, false
    }
    return fmt.Sprint(arr[0]) == "1", asInt64(arr[1]), asInt64(arr[2]), true
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64: return t
    case int: return int64(t)
    case float64: return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
    }
    return 0
}

// buildRateKey composes the bucket key.  Routes use the registered path
// (":id", not the value), so paying sale 5 and sale 6 share a bucket.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    uid := userID(c)
    route := c.Request().Method + " " + c.Path()
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }

    switch strings.ToLower(cfg.KeyStrategy) {
    case "user":
        parts = append(parts, "user", uid)
    case "ip":
        parts = append(parts, "ip", ip)
    case "ip_user_route":
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    default: // "user_route"
        parts = append(parts, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
