// Package backend talks to the remote raffle backend.  The backend owns every
// business rule and all persistent state; this package only moves requests
// across the wire, bounds them with a timeout and classifies failures into
// the console's error taxonomy.  Payloads are decoded leniently (see Record)
// and converted into model types before anything else sees them.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/utils"
)

// Release modes select how a cupo release is sent.  Older backends only
// expose DELETE on the sale resource.
const (
	ReleasePost   = "post"
	ReleaseDelete = "delete"
)

// DefaultTimeout bounds a backend call when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	ReleaseMode string
	Policy      model.Policy
	HTTPClient  *http.Client
}

// Client is shared by every console session.  It is safe for concurrent
// use; per-operator credentials are attached with As.
type Client struct {
	baseURL     string
	http        *http.Client
	timeout     time.Duration
	releaseMode string
	policy      model.Policy
}

// New builds a Client from opts.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	mode := strings.ToLower(strings.TrimSpace(opts.ReleaseMode))
	if mode != ReleaseDelete {
		mode = ReleasePost
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		http:        hc,
		timeout:     timeout,
		releaseMode: mode,
		policy:      opts.Policy,
	}
}

// Policy returns the seat policy applied when decoding seats.
func (c *Client) Policy() model.Policy { return c.policy }

// As returns a connection that sends token as the bearer credential.
func (c *Client) As(token string) *Conn {
	return &Conn{client: c, token: token}
}

// Conn is a Client bound to one operator's token.
type Conn struct {
	client *Client
	token  string
}

// Owner returns a short digest of the token, stable for the token's life.
func (c *Conn) Owner() string { return utils.HashToken(c.token)[:16] }

// Get performs a GET and returns the decoded JSON body.
func (c *Conn) Get(ctx context.Context, path string, query url.Values) (any, error) {
	return c.client.doJSON(ctx, http.MethodGet, path, query, nil, c.token)
}

// Post performs a POST with a JSON body.
func (c *Conn) Post(ctx context.Context, path string, body any) (any, error) {
	return c.client.doJSON(ctx, http.MethodPost, path, nil, body, c.token)
}

// Put performs a PUT with a JSON body.
func (c *Conn) Put(ctx context.Context, path string, body any) (any, error) {
	return c.client.doJSON(ctx, http.MethodPut, path, nil, body, c.token)
}

// Delete performs a DELETE.
func (c *Conn) Delete(ctx context.Context, path string) (any, error) {
	return c.client.doJSON(ctx, http.MethodDelete, path, nil, nil, c.token)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, token string) (any, error) {
	raw, err := c.do(ctx, method, path, query, body, token)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &UnexpectedShapeError{Endpoint: endpoint(method, path), Expected: "a JSON body"}
	}
	return out, nil
}

// do sends one request bounded by the client timeout and returns the raw
// body of a 2xx answer.  Every other outcome is mapped to the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string) ([]byte, error) {
	ep := endpoint(method, path)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", ep, err)
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", ep, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Endpoint: ep, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Endpoint: ep, Timeout: isTimeout(err), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s: %w", ep, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &RejectionError{Endpoint: ep, Status: resp.StatusCode, Reason: detailOf(raw)}
	}
	return raw, nil
}

func endpoint(method, path string) string { return method + " " + path }

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// detailOf pulls a human-readable reason out of an error body.  The backend
// uses detail (string, or a list of {msg} for validation failures) and some
// proxies use message or error.
func detailOf(raw []byte) string {
	var body map[string]any
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	switch d := body["detail"].(type) {
	case string:
		return strings.TrimSpace(d)
	case []any:
		var msgs []string
		for _, e := range d {
			if rec, ok := AsRecord(e); ok {
				if m := rec.String("msg", "message"); m != "" {
					msgs = append(msgs, m)
				}
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return Record(body).String("message", "error")
}
