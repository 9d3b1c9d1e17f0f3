// Package http holds the echo server plumbing, the response envelope and
// a small JSON client for upstream services.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MethodGet  = http.MethodGet
	MethodPost = http.MethodPost
)

// errBodyLimit caps how much of a failed response is kept.
const errBodyLimit = 4 << 10

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, bytes.TrimSpace(e.Body))
}

// Temporary reports whether the same request may succeed later.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

type ClientOption func(*Client)

// Client sends JSON requests relative to an optional base URL.
type Client struct {
	hc      *http.Client
	baseURL string
	header  http.Header
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		hc:     &http.Client{Timeout: 30 * time.Second},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithBaseURL prefixes relative request URLs.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHeader is sent on every request unless the request overrides it.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.header.Set(key, value) }
}

func WithBearer(token string) ClientOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithTransport swaps the round tripper. Tests use it.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) { c.hc.Transport = rt }
}

// RequestOptions describes one call. URL may be absolute or relative to the base URL.
type RequestOptions struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams url.Values
	Body        interface{}
}

// SendAndParse performs the request and decodes a 2xx body into dest.
// dest may be nil, a *[]byte for the raw body, an io.Writer, or anything
// encoding/json can decode into.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	req, err := c.newRequest(ctx, opts)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return &StatusError{Method: req.Method, URL: req.URL.Redacted(), Code: resp.StatusCode, Body: body}
	}
	return decodeInto(resp.Body, dest)
}

// Get is SendAndParse for a GET without body.
func (c *Client) Get(ctx context.Context, u string, dest interface{}) error {
	return c.SendAndParse(ctx, &RequestOptions{Method: MethodGet, URL: u}, dest)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, u string, body, dest interface{}) error {
	return c.SendAndParse(ctx, &RequestOptions{Method: MethodPost, URL: u, Body: body}, dest)
}

func (c *Client) newRequest(ctx context.Context, opts *RequestOptions) (*http.Request, error) {
	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}
	target := opts.URL
	if c.baseURL != "" && !strings.Contains(target, "://") {
		target = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	method := opts.Method
	if method == "" {
		method = MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if len(opts.QueryParams) > 0 {
		q := req.URL.Query()
		for k, vs := range opts.QueryParams {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

func encodeBody(v interface{}) (io.Reader, string, error) {
	switch b := v.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	case string:
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		return b, "application/octet-stream", nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(buf), "application/json", nil
}

func decodeInto(r io.Reader, dest interface{}) error {
	switch d := dest.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, r)
		return nil
	case *[]byte:
		b, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		*d = b
		return nil
	case io.Writer:
		if _, err := io.Copy(d, r); err != nil {
			return fmt.Errorf("copy body: %w", err)
		}
		return nil
	}
	if err := json.NewDecoder(r).Decode(dest); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
