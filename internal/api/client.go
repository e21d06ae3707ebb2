package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/brettbeeson/notsolong/internal/shared"
	"github.com/charmbracelet/log"
)

const refreshPath = "/auth/token/refresh/"

// TokenStore persists the access/refresh token pair across process restarts.
//
// Get returns nil when nothing is stored or the stored value is unreadable;
// a corrupt store reads as "logged out", never as an error.
type TokenStore interface {
	Get() *Tokens
	Set(tokens Tokens) error
	Clear() error
}

// noopStore is the fallback when no store is provided: tokens live only in
// the client's default header.
type noopStore struct{}

func (noopStore) Get() *Tokens     { return nil }
func (noopStore) Set(Tokens) error { return nil }
func (noopStore) Clear() error     { return nil }

// refreshCall is the shared handle for one in-flight token refresh. All
// concurrent 401 callers wait on done and read the same result.
type refreshCall struct {
	done   chan struct{}
	access string
	err    error
}

// Client performs all HTTP traffic against the Not So Long backend.
//
// It owns the default Authorization header and transparently refreshes the
// access token on a 401: the failing request is retried exactly once with
// the refreshed token, and overlapping 401s share a single refresh call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	logger     *log.Logger

	mu         sync.Mutex
	access     string
	refreshing *refreshCall
}

// NewClient creates a Client for the given API base URL.
func NewClient(baseURL string, httpClient *http.Client, store TokenStore, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000/api"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if store == nil {
		store = noopStore{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
		logger:     logger,
	}
}

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(logger *log.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetAuthToken sets or clears the default Authorization header for all
// subsequent requests. Only the session manager and the refresh path write
// here.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.access = token
	c.mu.Unlock()
}

// AuthToken returns the access token currently attached to requests, or ""
// when unauthenticated.
func (c *Client) AuthToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

// do performs one request, refreshing the access token and retrying once if
// the response is a 401. The refresh endpoint itself is never intercepted.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	err := c.roundTrip(ctx, method, path, query, body, out, c.AuthToken())

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && path != refreshPath {
		access, refreshErr := c.refreshAccess(ctx)
		if refreshErr != nil {
			// The caller sees the original 401, not the refresh failure.
			c.logger.Debug("token refresh failed", "error", refreshErr)
			return err
		}
		return c.roundTrip(ctx, method, path, query, body, out, access)
	}

	return err
}

// roundTrip performs a single HTTP exchange with no interception.
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any, token string) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// refreshAccess exchanges the stored refresh token for a new access token.
//
// At most one refresh is in flight process-wide: the first caller performs
// the exchange while everyone else waits on the same [refreshCall]. On
// failure the store and the default header are cleared before the error is
// returned.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	c.mu.Lock()
	if call := c.refreshing; call != nil {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.access, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.refreshing = call
	c.mu.Unlock()

	call.access, call.err = c.doRefresh(ctx)

	c.mu.Lock()
	c.refreshing = nil
	c.mu.Unlock()
	close(call.done)

	return call.access, call.err
}

func (c *Client) doRefresh(ctx context.Context) (string, error) {
	tokens := c.store.Get()
	if tokens == nil || tokens.Refresh == "" {
		return "", shared.ErrNoRefreshToken
	}

	access, err := c.RefreshToken(ctx, tokens.Refresh)
	if err != nil {
		c.SetAuthToken("")
		if clearErr := c.store.Clear(); clearErr != nil {
			c.logger.Warn("failed to clear token store", "error", clearErr)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	c.SetAuthToken(access)
	if setErr := c.store.Set(Tokens{Access: access, Refresh: tokens.Refresh}); setErr != nil {
		c.logger.Warn("failed to persist refreshed token", "error", setErr)
	}

	return access, nil
}
