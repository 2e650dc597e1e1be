package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/raffle-console/internal/handler"
)

// RegisterConsole registers the operator's console under /v1: the seat
// grid, the selection and the sale operations.  guard is the bearer token
// check followed by the mutation rate limiter.
func RegisterConsole(e *echo.Echo, h *handler.ConsoleHandler, guard ...echo.MiddlewareFunc) {
	g := e.Group("/v1", guard...)

	// ---- Grid ----
	g.GET("/grid", h.Grid)
	g.POST("/grid/refresh", h.Refresh)
	g.POST("/grid/reload", h.Reload)
	g.POST("/grid/seats/:number/toggle", h.Toggle)
	g.DELETE("/grid/selection/:number", h.RemoveSelected)
	g.DELETE("/grid/selection", h.ClearSelection)
	g.PUT("/grid/initial-payment", h.SetInitialPayment)
	g.DELETE("/grid/context", h.CloseContext)
	g.DELETE("/grid/error", h.DismissError)

	// ---- Sales ----
	g.POST("/sales", h.CreateSale)
	g.GET("/sales/:id/summary", h.SaleSummary)
	g.POST("/sales/:id/payments", h.RegisterPayment)
	g.POST("/sales/:id/release", h.ReleaseCupo)
	g.GET("/sales/:id/receipt", h.Receipt)
}
