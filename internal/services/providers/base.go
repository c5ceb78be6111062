package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinAdvisor/pkg/config"
	xhttp "FinAdvisor/pkg/http"
)

// HTTPServiceBase provides the shared client for analytics-backed providers.
// It centralizes client construction and JSON POST request handling.
type HTTPServiceBase struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
}

// NewHTTPServiceBase builds an HTTP client with timeout, retries and base URL from config.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
	timeout := cfg.Analytics.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPServiceBase{
		baseURL:  cfg.Analytics.ServiceURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("finadvisor/"+cfg.Environment)),
		attempts: cfg.Analytics.Retries + 1,
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("analytics http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry posts JSON, retrying transport errors, 429 and 5xx with
// linear backoff.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	attempts := b.attempts
	if attempts <= 1 {
		return b.PostJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		var se *xhttp.StatusError
		if i == attempts || (errors.As(err, &se) && !se.Retryable()) {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
