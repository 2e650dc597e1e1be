package middleware

// identity.go defines helpers shared across middleware and handlers for the
// operator stored in the Echo context by BearerAuth.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/raffle-console/internal/model"
)

const operatorKey = "operator"

// OperatorFrom returns the operator BearerAuth stored in the context.
func OperatorFrom(c echo.Context) (model.Operator, bool) {
    op, ok := c.Get(operatorKey).(model.Operator)
    return op, ok
}

// userID extracts the operator key for rate limiting.  It returns "anon"
// when no operator is authenticated.
func userID(c echo.Context) string {
    if op, ok := OperatorFrom(c); ok && op.Key() != "" {
        return op.Key()
    }
    if v, ok := c.Get("user_id").(string); ok && v != "" {
        return v
    }
    return "anon"
}
