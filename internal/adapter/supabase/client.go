// Package supabase provides an HTTP client for a hosted Supabase project:
// PostgREST for table reads and GoTrue for email/password sessions.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bussola-offshore/bussola/internal/resilience"
)

// APIError is a non-2xx response from PostgREST or GoTrue.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase API error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase API error %d: %s", e.Status, e.Message)
}

// IsBackendFailure reports whether err means the project is unhealthy, as
// opposed to a request it understood and refused. Only these trip the breaker.
func IsBackendFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return true
}

// Client talks to one Supabase project.
type Client struct {
	baseURL    string
	redirectTo string

	keyMu  sync.RWMutex
	apiKey string

	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a client for the project at baseURL authenticating with
// the project API key.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetAPIKey swaps the project key used by subsequent requests.
func (c *Client) SetAPIKey(key string) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	c.apiKey = key
}

func (c *Client) key() string {
	c.keyMu.RLock()
	defer c.keyMu.RUnlock()
	return c.apiKey
}

// SetRedirectTo sets the link target of verification mails sent on sign-up.
func (c *Client) SetRedirectTo(url string) {
	c.redirectTo = url
}

// Health checks that the auth service answers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/auth/v1/health", "", nil)
	return err
}

// doRequest sends a request with the project key. bearer overrides the
// Authorization token (a user's access token); empty uses the project key.
func (c *Client) doRequest(ctx context.Context, method, path, bearer string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		apiKey := c.key()
		req.Header.Set("apikey", apiKey)
		token := apiKey
		if bearer != "" {
			token = bearer
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return parseAPIError(resp.StatusCode, data)
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

// parseAPIError reads the error body. PostgREST uses {code, message};
// GoTrue uses {error_code, msg} or the OAuth {error, error_description}.
func parseAPIError(status int, data []byte) *APIError {
	var body struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}

	apiErr.Code = body.ErrorCode
	if apiErr.Code == "" {
		if s, ok := body.Code.(string); ok {
			apiErr.Code = s
		} else if body.Error != "" {
			apiErr.Code = body.Error
		}
	}

	for _, m := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
