package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	domsvc "AstroPull/internal/domain/service"
	"AstroPull/pkg/config"
	xhttp "AstroPull/pkg/http"
)

// HTTPServiceBase centralizes client construction and JSON calls to the ephemeris service.
type HTTPServiceBase struct {
	baseURL string
	retries int
	client  *xhttp.Client
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
	timeout := cfg.Ephemeris.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.Ephemeris.Retries
	if retries <= 0 {
		retries = 2
	}
	return &HTTPServiceBase{
		baseURL: cfg.Ephemeris.ServiceURL,
		retries: retries,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithBaseURL(cfg.Ephemeris.ServiceURL)),
	}
}

// PostJSON posts the payload to path under baseURL and decodes the answer into dest.
// A *[]byte dest receives the raw body.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	return b.do(ctx, &xhttp.RequestOptions{Method: xhttp.MethodPost, URL: path, Body: payload}, dest)
}

// GetJSON issues a GET to path under baseURL.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, dest interface{}) error {
	return b.do(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: path}, dest)
}

// PostJSONWithRetry retries transient failures with a linear backoff. Rejected input is not retried.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	return b.retry(ctx, &xhttp.RequestOptions{Method: xhttp.MethodPost, URL: path, Body: payload}, dest)
}

// PostAcceptWithRetry is PostJSONWithRetry for endpoints answering with a
// non-JSON media type.
func (b *HTTPServiceBase) PostAcceptWithRetry(ctx context.Context, path, accept string, payload interface{}, dest interface{}) error {
	return b.retry(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     path,
		Headers: map[string]string{"Accept": accept},
		Body:    payload,
	}, dest)
}

func (b *HTTPServiceBase) retry(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
	var err error
	for i := 1; i <= b.retries; i++ {
		err = b.do(ctx, opts, dest)
		if err == nil || errors.Is(err, domsvc.ErrInvalidBirthData) || i == b.retries {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (b *HTTPServiceBase) do(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("ephemeris http client not initialized: %w", domsvc.ErrProviderUnavailable)
	}
	if err := b.client.SendAndParse(ctx, opts, dest); err != nil {
		return classify(opts.URL, err)
	}
	return nil
}

// classify maps client errors onto the domain sentinels.
func classify(path string, err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		if se.Code == http.StatusBadRequest || se.Code == http.StatusUnprocessableEntity {
			return fmt.Errorf("post %s: %w: %s", path, domsvc.ErrInvalidBirthData, se.Body)
		}
		return fmt.Errorf("post %s: status %d: %w", path, se.Code, domsvc.ErrProviderUnavailable)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("post %s: %v: %w", path, err, domsvc.ErrProviderUnavailable)
}
