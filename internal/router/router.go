package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/raffle-console/internal/handler" // handlers that forward to the console and the backend
)

// RegisterRoutes registers routes that do not require authentication.
// /healthz is used by load balancers and never touches the backend.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the sign-in routes.  Login is public: the backend
// checks the credentials.  Logout and /v1/me require the bearer token
// guard.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, guard ...echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout, guard...)

	auth := e.Group("/v1", guard...)
	auth.GET("/me", a.Me)
	// Alias kept for clients that log out at the top level.
	auth.POST("/logout", a.Logout)
}

// RegisterJournal registers the read-only settlement journal routes.
func RegisterJournal(e *echo.Echo, j *handler.JournalHandler, guard ...echo.MiddlewareFunc) {
	g := e.Group("/v1/journal", guard...)
	g.GET("", j.List)
	g.GET("/sales/:id", j.BySale)
}
