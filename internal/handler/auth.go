package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/console"
	"github.com/iliyamo/raffle-console/internal/utils"
)

// Authenticator exchanges credentials for a backend token.
type Authenticator interface {
	Login(ctx context.Context, cred backend.Credentials) (string, error)
}

// AuthHandler signs operators in through the backend and owns the lifetime
// of their console sessions.
type AuthHandler struct {
	responder
	Backend  Authenticator
	Sessions *console.Manager
}

func NewAuthHandler(b Authenticator, sessions *console.Manager) *AuthHandler {
	return &AuthHandler{responder: responder{sessions: sessions}, Backend: b, Sessions: sessions}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type operatorPart struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

type loginResp struct {
	AccessToken string       `json:"access_token"`
	Operator    operatorPart `json:"operator"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Grid        any          `json:"grid,omitempty"`
}

// Login forwards the credentials to the backend and opens the operator's
// console on the returned token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx := c.Request().Context()
	token, err := h.Backend.Login(ctx, backend.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return h.fail(c, err, "login")
	}

	op := utils.InspectToken(token)
	if op.Label == "" {
		op.Label = req.Username
	}
	resp := loginResp{AccessToken: token, Operator: operatorPart{ID: op.Key(), Label: op.Label}}
	if !op.ExpiresAt.IsZero() {
		exp := op.ExpiresAt
		resp.ExpiresAt = &exp
	}
	if h.Sessions != nil {
		// Log in always starts a fresh console.
		h.Sessions.Drop(op.Key())
		s, err := h.Sessions.Open(ctx, op)
		if err == nil {
			resp.Grid = s.Grid()
		}
	}
	log.Infof("auth: operator %s signed in", op.Key())
	return c.JSON(http.StatusOK, resp)
}

// Logout drops the caller's console session.  The backend token itself is
// discarded by the client.
func (h *AuthHandler) Logout(c echo.Context) error {
	op, ok := operator(c)
	if !ok {
		return unauthorized(c)
	}
	if h.Sessions != nil {
		h.Sessions.Drop(op.Key())
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated operator.
func (h *AuthHandler) Me(c echo.Context) error {
	op, ok := operator(c)
	if !ok {
		return unauthorized(c)
	}
	body := echo.Map{"id": op.Key(), "label": op.Label}
	if !op.ExpiresAt.IsZero() {
		body["expires_at"] = op.ExpiresAt
	}
	return c.JSON(http.StatusOK, body)
}
