package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strings" // strings normalizes enum-like values
    "time"    // time parses timeouts and TTLs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Everything has a development default except the
// backend URL in production, which must be set explicitly.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    BackendURL     string        // base URL of the remote raffle backend
    DefaultDrawID  int64         // draw opened when no ACTIVO draw is found
    SeatPrice      int64         // per-seat price used for estimates only
    RequestTimeout time.Duration // bound on every backend call
    VoidResellable bool          // whether VOID seats may be sold again
    ReleaseMode    string        // "post" (/liberar) or "delete"
    ReceiptDir     string        // where downloaded receipts are written
    LogDir         string        // settlement event log directory
    SessionIdle    time.Duration // console sessions idle this long are dropped
    AMQPURL        string        // RabbitMQ URL, empty disables events
    DB             DBConfig      // settlement journal, disabled when Host is empty
}

// DBConfig is the MySQL connection of the settlement journal.
type DBConfig struct {
    User string
    Pass string
    Host string
    Port string
    Name string
}

// Enabled reports whether a journal database is configured.
func (d DBConfig) Enabled() bool { return d.Host != "" && d.Name != "" }

// Load reads configuration values from environment variables and returns a
// Config.  Invalid values fall back to defaults; a missing backend URL in
// production causes the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:            getenv("APP_ENV", "dev"),                          // environment (dev/test/prod)
        Port:           getenv("APP_PORT", "8080"),                        // port to bind the HTTP server
        BackendURL:     getenv("BACKEND_BASE_URL", "http://127.0.0.1:8000"), // remote backend
        DefaultDrawID:  int64(envInt("DEFAULT_DRAW_ID", 1)),               // fallback draw
        SeatPrice:      int64(envInt("SEAT_PRICE", 35000)),                // estimate price
        RequestTimeout: envDur("REQUEST_TIMEOUT", 10*time.Second),         // per call timeout
        VoidResellable: envBool("VOID_RESELLABLE", false),                 // VOID seat policy
        ReleaseMode:    strings.ToLower(envStr("RELEASE_MODE", "post")),   // release route
        ReceiptDir:     envStr("RECEIPT_DIR", "receipts"),                 // receipt downloads
        LogDir:         envStr("LOG_DIR", "logs"),                         // settlement.log
        SessionIdle:    envDur("SESSION_IDLE_TIMEOUT", 2*time.Hour),       // session sweeper
        AMQPURL:        firstEnv("RABBITMQ_URL", "AMQP_URL"),              // events broker
        DB: DBConfig{
            User: os.Getenv("DB_USER"),
            Pass: os.Getenv("DB_PASS"), // empty allowed
            Host: os.Getenv("DB_HOST"),
            Port: getenv("DB_PORT", "3306"),
            Name: os.Getenv("DB_NAME"),
        },
    }
    if cfg.Env == "prod" {
        cfg.BackendURL = must("BACKEND_BASE_URL")
    }
    if cfg.ReleaseMode != "post" && cfg.ReleaseMode != "delete" {
        log.Printf("config: unknown RELEASE_MODE %q, using post", cfg.ReleaseMode)
        cfg.ReleaseMode = "post"
    }
    if cfg.RequestTimeout <= 0 {
        cfg.RequestTimeout = 10 * time.Second
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
    for _, k := range keys {
        if v := os.Getenv(k); v != "" {
            return v
        }
    }
    return ""
}
