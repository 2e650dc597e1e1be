package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming
    "time"     // clock for the expiry check

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/raffle-console/internal/utils"
)

// Forget is called with the operator key when a request is refused because
// its token expired, so the operator's console session can be dropped.
type Forget func(key string)

// BearerAuth returns an Echo middleware that requires a Bearer token and
// injects the operator it carries into the request context.  The token is
// inspected, not verified: the backend verifies it on every forwarded call.
// An expired token answers 401 with "logout": true so the UI signs out.
func BearerAuth(forget Forget) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "logout": true})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "logout": true})
            }

            op := utils.InspectToken(raw)
            if err := utils.CheckExpiry(op, time.Now(), utils.ExpirySkew); err != nil {
                if forget != nil {
                    forget(op.Key())
                }
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error(), "logout": true})
            }

            // Downstream handlers read the operator with OperatorFrom; the
            // rate limiter keys on user_id.
            c.Set(operatorKey, op)
            c.Set("user_id", op.Key())
            return next(c)
        }
    }
}
