// Package apiclient is a typed client for the StepJourney REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stepjourney/internal/logger"
)

// APIError is a non-success envelope or an unexpected status.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Client struct {
	base  string
	http  *http.Client
	token string
	log   *logger.Logger
	// ReadRetries is how many times a failed read is retried.
	ReadRetries int
	RetryDelay  time.Duration
}

func New(baseURL, token string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		base:        strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 15 * time.Second},
		token:       token,
		log:         log,
		ReadRetries: 1,
		RetryDelay:  200 * time.Millisecond,
	}
}

func (c *Client) SetToken(token string) { c.token = token }

// Me fetches the signed-in user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.read(ctx, "/api/v1/users/me", &u)
	return u, err
}

// Logout revokes the current token. It is never retried.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
}

// read issues a GET, retrying transport failures and 5xx responses.
func (c *Client) read(ctx context.Context, path string, out any) error {
	var err error
	for attempt := 0; attempt <= c.ReadRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying read", "path", path, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.RetryDelay):
			}
		}
		err = c.do(ctx, http.MethodGet, path, nil, out)
		if !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode >= 300 || decodeErr != nil || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: env.Error, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return nil
}
