package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/raffle-console/internal/config"
)

func token(t *testing.T, exp time.Time) string {
    t.Helper()
    s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "name": "ana", "exp": exp.Unix()}).
        SignedString([]byte("k"))
    require.NoError(t, err)
    return s
}

func serve(mw echo.MiddlewareFunc, authz string) (*httptest.ResponseRecorder, echo.Context) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/grid", nil)
    if authz != "" {
        req.Header.Set("Authorization", authz)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    _ = mw(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c)
    return rec, c
}

func TestBearerAuthSetsOperator(t *testing.T) {
    rec, c := serve(BearerAuth(nil), "Bearer "+token(t, time.Now().Add(time.Hour)))
    assert.Equal(t, http.StatusNoContent, rec.Code)
    op, ok := OperatorFrom(c)
    require.True(t, ok)
    assert.Equal(t, "7", op.ID)
    assert.Equal(t, "ana", op.Label)
    assert.Equal(t, "7", userID(c))
}

func TestBearerAuthMissingToken(t *testing.T) {
    rec, _ := serve(BearerAuth(nil), "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Contains(t, rec.Body.String(), `"logout":true`)
}

func TestBearerAuthExpiredForgetsSession(t *testing.T) {
    var forgotten string
    rec, _ := serve(BearerAuth(func(k string) { forgotten = k }), "Bearer "+token(t, time.Now().Add(5*time.Second)))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Contains(t, rec.Body.String(), "token expired")
    assert.Equal(t, "7", forgotten)
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
    rec, _ := serve(NewTokenBucket(cfg, nil), "")
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/sales/5/payments", nil)
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/sales/:id/payments")
    c.Set("user_id", "7")

    cfg := config.RateLimitConfig{Prefix: "rl"}
    assert.Equal(t, "rl:user:7:route:POST /v1/sales/:id/payments", buildRateKey(cfg, c))
    cfg.KeyStrategy = "user"
    assert.Equal(t, "rl:user:7", buildRateKey(cfg, c))
}

func TestParseBucket(t *testing.T) {
    allowed, left, retry, ok := parseBucket([]interface{}{int64(0), int64(0), int64(1500)})
    require.True(t, ok)
    assert.False(t, allowed)
    assert.Zero(t, left)
    assert.Equal(t, int64(1500), retry)

    _, _, _, ok = parseBucket("nope")
    assert.False(t, ok)
}
