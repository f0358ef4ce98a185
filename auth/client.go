// Package auth provides the client side of the authentication service
// consumed by the dialog core.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// UserInfo describes an authenticated user as stored by the auth service.
type UserInfo struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	AuthenticatedAt string `json:"authenticated_at"`
}

// VerifyResult is the auth service's answer for one telegram user.
type VerifyResult struct {
	Authenticated bool      `json:"authenticated"`
	UserInfo      *UserInfo `json:"user_info"`
}

// Client checks authentication status against the auth service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an auth client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify reports whether the user has completed the login flow. Transport
// failures are returned as errors; the policy for degrading is the caller's.
func (c *Client) Verify(ctx context.Context, userID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/verify/%s", c.baseURL, userID), nil)
	if err != nil {
		return false, errors.Wrap(err, "build verify request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "auth verify")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("auth verify: status %d", resp.StatusCode)
	}

	var result VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, errors.Wrap(err, "decode verify response")
	}
	return result.Authenticated, nil
}

// LoginURL returns the browser link that starts the OAuth flow for a user.
func (c *Client) LoginURL(userID string) string {
	return fmt.Sprintf("%s/login/%s", c.baseURL, userID)
}
