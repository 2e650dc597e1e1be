package config

import (
    "os"
    "time"
)

// ReportCacheConfig defines settings for the reporting cache.  When Enabled
// is false the TTL is forced to zero and every report is fetched live.  The
// seat grid never goes through this cache.
type ReportCacheConfig struct {
    Enabled bool
    TTL     time.Duration
    Prefix  string
}

// LoadReportCacheConfig reads environment variables to build a
// ReportCacheConfig.  Defaults are used when variables are not set.
func LoadReportCacheConfig() ReportCacheConfig {
    c := ReportCacheConfig{
        Enabled: getenv("REPORT_CACHE_ENABLED", "true") == "true",
        TTL:     parseDur(getenv("REPORT_CACHE_TTL", "30s"), 30*time.Second),
        Prefix:  getenv("REPORT_CACHE_PREFIX", "reports"),
    }
    if !c.Enabled {
        c.TTL = 0
    }
    return c
}

// Helper functions reused from config.go and redis.go
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseDur(s string, def time.Duration) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return def
    }
    return d
}
