package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gofinances/sessionkit"
)

// StatusError is returned for a non-2xx answer. It unwraps to
// [sessionkit.ErrRemoteRejection].
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("session lookup rejected: status %d", e.StatusCode)
	}
	return fmt.Sprintf("session lookup rejected: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match sessionkit.ErrRemoteRejection.
func (e *StatusError) Unwrap() error {
	return sessionkit.ErrRemoteRejection
}

// Client posts session lookups to a fixed endpoint.
type Client struct {
	endpoint         string
	http             *http.Client
	maxResponseBytes int64
	userAgent        string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Timeout wins over
// the configured one.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient builds a Client from the Remote section of a config. An empty
// SessionsPath or zero MaxResponseBytes takes the default; the rest must pass
// [sessionkit.RemoteConfig.Validate].
func NewClient(cfg sessionkit.RemoteConfig, opts ...Option) (*Client, error) {
	if cfg.SessionsPath == "" {
		cfg.SessionsPath = "/sessions"
	}
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = 64 << 10
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:         strings.TrimRight(cfg.BaseURL, "/") + cfg.SessionsPath,
		http:             &http.Client{Timeout: cfg.Timeout},
		maxResponseBytes: cfg.MaxResponseBytes,
		userAgent:        "sessionkit",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the full lookup URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// LookupSession posts creds and decodes the returned user.
func (c *Client) LookupSession(ctx context.Context, creds sessionkit.Credentials) (sessionkit.User, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return sessionkit.User{}, fmt.Errorf("encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return sessionkit.User{}, fmt.Errorf("%w: build request: %v", sessionkit.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return sessionkit.User{}, fmt.Errorf("%w: %w", sessionkit.ErrNetwork, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.maxResponseBytes+1)
	payload, err := io.ReadAll(limited)
	if err != nil {
		return sessionkit.User{}, fmt.Errorf("%w: read response: %w", sessionkit.ErrNetwork, err)
	}
	if int64(len(payload)) > c.maxResponseBytes {
		return sessionkit.User{}, fmt.Errorf("%w: response exceeds %d bytes", sessionkit.ErrRemoteRejection, c.maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return sessionkit.User{}, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(payload)}
	}

	var user sessionkit.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return sessionkit.User{}, fmt.Errorf("%w: decode user: %v", sessionkit.ErrRemoteRejection, err)
	}
	if user.ID == "" {
		return sessionkit.User{}, fmt.Errorf("%w: user without id", sessionkit.ErrRemoteRejection)
	}
	return user, nil
}

// errorMessage pulls {"message": "..."} or {"error": "..."} out of an error
// body, falling back to the trimmed text.
func errorMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(payload))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
