package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/raffle-console/internal/handler"
)

// RegisterReports registers the secondary views and draw administration
// under /v1.  The backend decides who may create draws or change their
// state; the console only forwards the operator's token.
func RegisterReports(e *echo.Echo, h *handler.ReportHandler, guard ...echo.MiddlewareFunc) {
	g := e.Group("/v1", guard...)

	// ---- Reports ----
	g.GET("/reports/receivables", h.Receivables)
	g.GET("/reports/expenses", h.Expenses)
	g.GET("/reports/productivity/month", h.ProductivityMonth)
	g.GET("/reports/productivity/draw/:id", h.ProductivityDraw)
	g.GET("/reports/sellers/draw/:id", h.SellerSales)
	g.POST("/expenses", h.CreateExpense)

	// ---- Draws ----
	g.GET("/draws", h.Draws)
	g.POST("/draws", h.CreateDraw)
	g.PUT("/draws/:id/state", h.SetDrawState)
	g.GET("/lotteries", h.Lotteries)

	g.GET("/gallery/years", h.GalleryYears)
}
