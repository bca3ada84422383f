package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// OrganizationHeader scopes a backend request to one organization.
const OrganizationHeader = "X-Organization-Id"

const maxErrorBody = 4 << 10

// Observer receives one call per finished backend request.
type Observer func(operation, result string)

// Client talks to the Employee Pulse REST backend. The organization id is an
// explicit argument of every scoped call, so concurrent sessions bound to
// different organizations never share header state.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	observe Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithObserver(fn Observer) Option {
	return func(c *Client) {
		if fn != nil {
			c.observe = fn
		}
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse backend base url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.Errorf("backend base url must be http or https, got %q", baseURL)
	}
	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: timeout},
		observe: func(string, string) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	operation string
	method    string
	path      string
	orgID     int64
	query     url.Values
	body      any
}

// call performs the request and returns the raw response body. Non-2xx
// responses become *Error.
func (c *Client) call(ctx context.Context, req request) ([]byte, error) {
	raw, err := c.send(ctx, req)
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		result = "canceled"
	default:
		var apiErr *Error
		if errors.As(err, &apiErr) {
			result = strconv.Itoa(apiErr.Status)
		} else {
			result = "transport_error"
		}
	}
	c.observe(req.operation, result)
	return raw, err
}

func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	target := *c.baseURL
	target.Path = c.baseURL.Path + req.path
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: encode body", req.operation)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: build request", req.operation)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.orgID > 0 {
		httpReq.Header.Set(OrganizationHeader, strconv.FormatInt(req.orgID, 10))
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: %s %s", req.operation, req.method, req.path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Operation: req.operation,
			Status:    resp.StatusCode,
			Message:   errorMessage(snippet, resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read body", req.operation)
	}
	return raw, nil
}

// decodeObject unmarshals raw into out. An empty or null body leaves out
// untouched and reports false.
func decodeObject(operation string, raw []byte, out any) (bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, errors.Wrapf(err, "%s: decode response", operation)
	}
	return true, nil
}

func pathID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Ping reports whether the backend answers HTTP at all. Any status below 500
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, request{operation: "ping", method: http.MethodGet, path: "/"})
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		return nil
	}
	return err
}
