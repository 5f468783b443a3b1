// Package api is the shared HTTP client used by every backend resource client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

// ErrTimeout is wrapped by errors caused by the request deadline.
var ErrTimeout = errors.New("api: request timed out")

// StatusError is returned when the response status is outside the set the
// caller declared acceptable.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("api: %s %s failed: status=%d body=%s", e.Method, e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("api: %s %s failed: status=%d", e.Method, e.Path, e.Status)
}

// Request describes one call. Accept must be set; Status(...) builds one.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Token  string
	Body   any
	Accept func(status int) bool
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Status returns an Accept predicate matching exactly the given codes.
func Status(codes ...int) func(int) bool {
	return func(status int) bool {
		for _, code := range codes {
			if status == code {
				return true
			}
		}
		return false
	}
}

// Do sends req and decodes an accepted 2xx JSON body into out. Accepted
// non-2xx statuses (a 404 on a lookup) are returned without decoding so the
// caller can map them. An empty or null body leaves out untouched.
func (c *Client) Do(ctx context.Context, req Request, out any) (int, error) {
	if req.Accept == nil {
		return 0, fmt.Errorf("api: %s %s: no accepted statuses declared", req.Method, req.Path)
	}

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create API request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return 0, fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrTimeout)
		}
		return 0, fmt.Errorf("%s %s: backend unavailable: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return resp.StatusCode, fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrTimeout)
		}
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("api server error",
			"method", req.Method,
			"path", req.Path,
			"status", resp.StatusCode,
			"body", string(raw),
		)
	}

	if !req.Accept(resp.StatusCode) {
		return resp.StatusCode, &StatusError{
			Method: req.Method,
			Path:   req.Path,
			Status: resp.StatusCode,
			Body:   raw,
		}
	}

	if out == nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}
	return resp.StatusCode, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
