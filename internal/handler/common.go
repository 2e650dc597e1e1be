package handler // handler defines http handlers

import (
	"net/http" // status codes
	"strconv"  // strconv converts path parameters

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/raffle-console/internal/middleware"
	"github.com/iliyamo/raffle-console/internal/model"
)

// pathInt64 parses a positive integer path parameter.
func pathInt64(c echo.Context, name string) (int64, bool) {
	n, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// queryInt parses an optional integer query parameter, def when absent or
// malformed.
func queryInt(c echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return n
	}
	return def
}

// unauthorized answers a request that reached a handler without an
// operator in its context.
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "logout": true})
}

// operator returns the authenticated operator.
func operator(c echo.Context) (model.Operator, bool) {
	return middleware.OperatorFrom(c)
}
