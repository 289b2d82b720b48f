// Package captcha verifies the CAPTCHA token sent with public application
// submissions against a reCAPTCHA/Turnstile compatible siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrRejected is returned when the provider says the token is not valid.
var ErrRejected = errors.New("captcha verification failed")

// Verifier checks a token for the given client IP.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Noop accepts every token. It is used when no secret is configured.
type Noop struct{}

// Verify implements Verifier.
func (Noop) Verify(context.Context, string, string) error { return nil }

// Client talks to a siteverify endpoint.
type Client struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
}

// NewClient returns a Client posting to verifyURL.
func NewClient(secret, verifyURL string) *Client {
	return &Client{
		secret:     secret,
		verifyURL:  verifyURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify implements Verifier.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: missing token", ErrRejected)
	}
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("captcha request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha provider returned %d", resp.StatusCode)
	}
	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode captcha response: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(out.ErrorCodes, ","))
	}
	return nil
}
