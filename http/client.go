package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultMaxRetries is the default number of attempts per request.
const DefaultMaxRetries = 3

// DefaultRetryWait is the initial wait between retries.
const DefaultRetryWait = 1 * time.Second

// Client wraps net/http with JSON encoding, retries for transient failures,
// and Retry-After handling. The planning backend's roster endpoints are the
// primary consumer, but nothing here is roster-specific.
type Client struct {
	client      *http.Client
	baseURL     string
	serviceName string
	maxRetries  int
	retryWait   time.Duration

	// beforeRequest runs before each attempt, for auth headers and the like.
	beforeRequest func(req *http.Request)
}

// ClientConfig configures NewClient. Zero values get defaults.
type ClientConfig struct {
	Client        *http.Client
	BaseURL       string
	ServiceName   string
	MaxRetries    int
	RetryWait     time.Duration
	BeforeRequest func(req *http.Request)
}

// NewClient builds a Client from cfg.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		client:        cfg.Client,
		baseURL:       cfg.BaseURL,
		serviceName:   cfg.ServiceName,
		maxRetries:    cfg.MaxRetries,
		retryWait:     cfg.RetryWait,
		beforeRequest: cfg.BeforeRequest,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: DefaultTimeout}
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryWait <= 0 {
		c.retryWait = DefaultRetryWait
	}
	return c
}

// Request executes one HTTP request, retrying network errors, 429s, and 5xx
// responses with exponential backoff. A Retry-After header wins over the
// computed backoff.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := range c.maxRetries {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.beforeRequest != nil {
			c.beforeRequest(req)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries-1 {
				if werr := c.wait(ctx, c.retryWait*time.Duration(1<<attempt)); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("%s request failed: %w", c.serviceName, err)
		}

		if retryableStatus(resp.StatusCode) && attempt < c.maxRetries-1 {
			wait := c.retryWaitFor(resp, attempt)
			resp.Body.Close()
			if werr := c.wait(ctx, wait); werr != nil {
				return nil, werr
			}
			continue
		}

		return resp, nil
	}
	return nil, lastErr
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Client) retryWaitFor(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return c.retryWait * time.Duration(1<<attempt)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Get performs a GET and decodes the JSON response into result.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	resp, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.handleResponse(resp, path, result)
}

// Post performs a POST and decodes the JSON response into result.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	resp, err := c.Request(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.handleResponse(resp, path, result)
}

// GetRaw performs a GET and returns the raw response body.
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.parseError(resp, path)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) handleResponse(resp *http.Response, path string, result any) error {
	if resp.StatusCode >= 400 {
		return c.parseError(resp, path)
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s response: %w", c.serviceName, err)
	}
	return nil
}

func (c *Client) parseError(resp *http.Response, path string) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{
		Service:    c.serviceName,
		StatusCode: resp.StatusCode,
		Endpoint:   path,
		RequestID:  resp.Header.Get("X-Request-Id"),
	}

	var errResp struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Message != "":
			apiErr.Message = errResp.Message
		case errResp.Detail != "":
			apiErr.Message = errResp.Detail
		case errResp.Error != "":
			apiErr.Message = errResp.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
