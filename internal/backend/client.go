package backend

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

	"quiz-portal-client/internal/domain"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 10 * time.Second

// ErrServiceUnavailable wraps transport failures (DNS, refused connections, timeouts).
var ErrServiceUnavailable = errors.New("quiz backend unavailable")

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Is lets errors.Is(err, domain.ErrUnauthorized) match a 401.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// CredentialSource yields the bearer token of the current principal, if any.
type CredentialSource interface {
	Token() string
}

// Client talks JSON to the quiz backend.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu             sync.RWMutex
	credentials    CredentialSource
	onUnauthorized func()
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// SetCredentials installs the token source attached to every request.
func (c *Client) SetCredentials(src CredentialSource) {
	c.mu.Lock()
	c.credentials = src
	c.mu.Unlock()
}

// OnUnauthorized registers the hook run when the backend answers 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// BaseURL returns the normalised backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) postJSON(ctx context.Context, path string, requestBody, responseBody any) error {
	return c.doJSON(ctx, http.MethodPost, path, requestBody, responseBody)
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	creds, hook := c.credentials, c.onUnauthorized
	c.mu.RUnlock()
	if creds != nil {
		if token := creds.Token(); token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			apiErr.Message = strings.TrimSpace(payload.Message)
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(payload.Error)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		if response.StatusCode == http.StatusUnauthorized && hook != nil {
			hook()
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(responseBody); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
