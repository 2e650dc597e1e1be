package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
    for _, k := range []string{"APP_ENV", "APP_PORT", "BACKEND_BASE_URL", "DEFAULT_DRAW_ID", "RELEASE_MODE", "REQUEST_TIMEOUT", "DB_HOST", "RABBITMQ_URL", "AMQP_URL"} {
        t.Setenv(k, "")
    }
    cfg := Load()
    assert.Equal(t, "dev", cfg.Env)
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, "http://127.0.0.1:8000", cfg.BackendURL)
    assert.Equal(t, int64(1), cfg.DefaultDrawID)
    assert.Equal(t, int64(35000), cfg.SeatPrice)
    assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
    assert.Equal(t, "post", cfg.ReleaseMode)
    assert.False(t, cfg.VoidResellable)
    assert.False(t, cfg.DB.Enabled())
    assert.Empty(t, cfg.AMQPURL)
}

func TestLoadOverrides(t *testing.T) {
    t.Setenv("DEFAULT_DRAW_ID", "9")
    t.Setenv("REQUEST_TIMEOUT", "3s")
    t.Setenv("VOID_RESELLABLE", "yes")
    t.Setenv("RELEASE_MODE", "DELETE")
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://guest:guest@mq:5672/")
    t.Setenv("DB_HOST", "db")
    t.Setenv("DB_NAME", "raffle")

    cfg := Load()
    assert.Equal(t, int64(9), cfg.DefaultDrawID)
    assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
    assert.True(t, cfg.VoidResellable)
    assert.Equal(t, "delete", cfg.ReleaseMode)
    assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.AMQPURL)
    assert.True(t, cfg.DB.Enabled())
    assert.Equal(t, "3306", cfg.DB.Port)
}

func TestUnknownReleaseModeFallsBack(t *testing.T) {
    t.Setenv("RELEASE_MODE", "patch")
    assert.Equal(t, "post", Load().ReleaseMode)
}

func TestReportCacheDisabledZeroesTTL(t *testing.T) {
    t.Setenv("REPORT_CACHE_ENABLED", "false")
    t.Setenv("REPORT_CACHE_TTL", "45s")
    assert.Zero(t, LoadReportCacheConfig().TTL)

    t.Setenv("REPORT_CACHE_ENABLED", "true")
    assert.Equal(t, 45*time.Second, LoadReportCacheConfig().TTL)

    t.Setenv("REPORT_CACHE_TTL", "soon")
    assert.Equal(t, 30*time.Second, LoadReportCacheConfig().TTL)
}

func TestRateLimitConfigClamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
    t.Setenv("RATE_LIMIT_TTL", "1s")
    t.Setenv("RATE_LIMIT_METHODS", "post, delete")
    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 5*time.Minute, cfg.TTL)
    assert.Equal(t, map[string]bool{"POST": true, "DELETE": true}, cfg.Methods)
}

func TestRedisAddrFromHostPort(t *testing.T) {
    t.Setenv("REDIS_ADDR", "ignored:1")
    t.Setenv("REDIS_HOST", "cache")
    t.Setenv("REDIS_PORT", "6380")
    t.Setenv("REDIS_TLS", "1")
    cfg := LoadRedisConfig()
    assert.Equal(t, "cache:6380", cfg.Addr)
    assert.True(t, cfg.TLS)
}
