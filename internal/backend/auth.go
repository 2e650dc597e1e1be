package backend

import "context"

// Credentials is the login body forwarded to the backend.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.  The console never checks
// passwords itself.
func (c *Client) Login(ctx context.Context, cred Credentials) (string, error) {
	const path = "/api/login"
	body, err := c.doJSON(ctx, "POST", path, nil, cred, "")
	if err != nil {
		return "", err
	}
	r, _ := AsRecord(body)
	tok := r.String("access_token", "token", "jwt")
	if tok == "" {
		return "", &UnexpectedShapeError{Endpoint: endpoint("POST", path), Expected: "an access token"}
	}
	return tok, nil
}
