package model

import "time"

// Operator is the authenticated salesperson driving a console session.
// It is read from the bearer token the backend issued; the console never
// verifies or stores credentials itself.
//
// Fields:
//
//	ID        – token subject (sub), may be empty on older backends.
//	Label     – display name taken from name/nombre/username/email/sub.
//	Token     – raw bearer token forwarded to the backend.
//	ExpiresAt – token expiry, zero when the token carries no exp claim.
type Operator struct {
	ID        string
	Label     string
	Token     string
	ExpiresAt time.Time
}

// Key identifies the operator's console session.
func (o Operator) Key() string {
	if o.ID != "" {
		return o.ID
	}
	return o.Label
}
