package utils // package utils provides helper functions for inspecting operator tokens

import (
    "crypto/sha256" // SHA‑256 hashing for opaque tokens
    "encoding/hex"  // hex encoding of the digest
    "errors"        // sentinel errors
    "strconv"       // numeric subjects
    "strings"       // trimming claim values
    "time"          // expiry arithmetic

    "github.com/golang-jwt/jwt/v5" // JWT library for decoding token claims

    "github.com/iliyamo/raffle-console/internal/model"
)

// ErrTokenExpired is returned for a token whose exp claim has passed.
var ErrTokenExpired = errors.New("token expired")

// ExpirySkew is how early a token is treated as expired, so a request never
// reaches the backend with a token about to lapse.
const ExpirySkew = 30 * time.Second

// labelClaims are tried in order for the operator's display name.
var labelClaims = []string{"name", "nombre", "username", "user", "email", "sub"}

// InspectToken reads the operator out of a bearer token issued by the
// backend.  The signature is NOT verified: the console does not hold the
// backend's key and the backend checks every forwarded request anyway.
// Tokens that are not JWTs are accepted as opaque; their key is a hash of
// the token so each one still gets its own session.
func InspectToken(raw string) model.Operator {
    op := model.Operator{Token: raw}
    claims := jwt.MapClaims{}
    if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
        op.ID = "tok-" + HashToken(raw)[:16]
        return op
    }
    // sub may be a string or a number depending on the backend version.
    if sub, err := claims.GetSubject(); err == nil && sub != "" {
        op.ID = sub
    } else if n, ok := claims["sub"].(float64); ok {
        op.ID = strconv.FormatInt(int64(n), 10)
    }
    for _, k := range labelClaims {
        if s, ok := claims[k].(string); ok && strings.TrimSpace(s) != "" {
            op.Label = strings.TrimSpace(s)
            break
        }
    }
    if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
        op.ExpiresAt = exp.Time
    }
    if op.ID == "" {
        op.ID = "tok-" + HashToken(raw)[:16]
    }
    return op
}

// CheckExpiry returns ErrTokenExpired when op's token expires within skew
// of now.  Tokens without exp never expire here.
func CheckExpiry(op model.Operator, now time.Time, skew time.Duration) error {
    if op.ExpiresAt.IsZero() {
        return nil
    }
    if !now.Add(skew).Before(op.ExpiresAt) {
        return ErrTokenExpired
    }
    return nil
}

// HashToken returns the SHA‑256 hash of a raw token as a hex string.  Only
// the hash ever appears in logs or keys.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
