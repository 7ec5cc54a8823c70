package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 5 * time.Second

	// StackBackend is the stack reported to the log server.
	StackBackend = "backend"
)

// NewHTTPClient creates an HTTP client configured for log delivery.
// It does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   DialTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   5,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// logRequest is the log server's wire format.
type logRequest struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}

// HTTPSink posts events to a remote log server with a bearer token.
type HTTPSink struct {
	logURL string
	tokens *TokenSource
	client *http.Client
}

// NewHTTPSink creates a sink posting to logURL.
func NewHTTPSink(logURL string, tokens *TokenSource, client *http.Client) *HTTPSink {
	return &HTTPSink{
		logURL: logURL,
		tokens: tokens,
		client: client,
	}
}

// Send posts one event.
func (s *HTTPSink) Send(ctx context.Context, event Event) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain token: %w", err)
	}

	body, err := json.Marshal(logRequest{
		Stack:   StackBackend,
		Level:   string(event.Level),
		Package: string(event.Category),
		Message: event.FlatMessage(),
	})
	if err != nil {
		return Permanent(fmt.Errorf("marshal log: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.logURL, bytes.NewReader(body))
	if err != nil {
		return Permanent(fmt.Errorf("build log request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "Snapurl-Telemetry/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("log request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusUnauthorized {
		s.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("log request failed: status %d", resp.StatusCode)
		if retryableStatus(resp.StatusCode) {
			return err
		}
		return Permanent(err)
	}
	return nil
}

// retryableStatus reports whether a failed log request may succeed later.
// 401 is retried because the token has just been invalidated.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}
