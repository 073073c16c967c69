package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/lerenn/bugme/pkg/logger"
)

// session wraps the retryable HTTP client shared by the REST adapters. The
// client honors Retry-After on 429 responses and retries transient failures
// up to maxRetries times, sleeping only the calling worker.
type session struct {
	client  *retryablehttp.Client
	headers http.Header
}

// newSession creates a session with the given extra request headers.
func newSession(log logger.Logger, headers http.Header) *session {
	client := retryablehttp.NewClient()
	client.RetryMax = maxRetries
	client.HTTPClient.Timeout = requestTimeout
	client.Logger = retryLogger{log: log}

	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Accept", "application/json")

	return &session{
		client:  client,
		headers: headers,
	}
}

// do issues a request and returns the response. The error covers transport
// failures only; callers inspect the status code themselves.
func (s *session) do(ctx context.Context, method, rawURL string, params url.Values) (*http.Response, error) {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	return s.client.Do(req)
}

// getJSON issues a GET and decodes the JSON response body. A 404 yields
// errNotFound; other non-2xx statuses yield a plain error.
func (s *session) getJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	resp, err := s.do(ctx, http.MethodGet, rawURL, params)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", rawURL, err)
	}
	return nil
}

// close releases the session's idle connections.
func (s *session) close() {
	s.client.HTTPClient.CloseIdleConnections()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// retryLogger adapts logger.Logger to retryablehttp's leveled logger.
// Retry chatter is demoted to debug; only hard failures surface as errors.
type retryLogger struct {
	log logger.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Errorf("%s %v", msg, keysAndValues)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warnf("%s %v", msg, keysAndValues)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("%s %v", msg, keysAndValues)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("%s %v", msg, keysAndValues)
}
