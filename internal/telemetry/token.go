package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// tokenExpiryBuffer refreshes tokens slightly before the server expires them.
const tokenExpiryBuffer = 5 * time.Second

// Credentials identify this service to the log server's auth endpoint.
type Credentials struct {
	ClientID     string `json:"clientID"`
	ClientSecret string `json:"clientSecret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenSource fetches and caches bearer tokens for the log server.
type TokenSource struct {
	authURL     string
	credentials Credentials
	client      *http.Client
	now         func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSource creates a TokenSource posting credentials to authURL.
func NewTokenSource(authURL string, credentials Credentials, client *http.Client) *TokenSource {
	return &TokenSource{
		authURL:     authURL,
		credentials: credentials,
		client:      client,
		now:         time.Now,
	}
}

// Token returns a cached token or fetches a new one.
// Concurrent callers share a single in-flight fetch.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" && s.now().Before(s.expiresAt) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("token", func() (any, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, forcing the next call to refetch.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *TokenSource) fetch(ctx context.Context) (string, error) {
	body, err := json.Marshal(s.credentials)
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("auth request failed: status %d: %s", resp.StatusCode, snippet)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("auth response missing access_token")
	}

	s.mu.Lock()
	s.token = tr.AccessToken
	s.expiresAt = s.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryBuffer)
	s.mu.Unlock()

	return tr.AccessToken, nil
}
