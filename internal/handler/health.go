package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project

    "github.com/iliyamo/raffle-console/internal/console"
)

// HealthHandler reports liveness plus which optional components this
// process runs with.
type HealthHandler struct {
    Sessions    *console.Manager
    Journal     bool // MySQL settlement journal configured
    Events      bool // RabbitMQ publisher configured
    ReportCache string // "redis", "memory" or "off"
}

// Health is used by load balancers and monitoring systems to verify that
// the service is running.  It never calls the backend.
func (h *HealthHandler) Health(c echo.Context) error {
    sessions := 0
    if h.Sessions != nil {
        sessions = h.Sessions.Len()
    }
    return c.JSON(http.StatusOK, echo.Map{
        "status":   "ok",
        "sessions": sessions,
        "components": echo.Map{
            "journal":      h.Journal,
            "events":       h.Events,
            "report_cache": h.ReportCache,
        },
    })
}
