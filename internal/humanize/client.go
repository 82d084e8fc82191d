package humanize

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
)

// API is the upstream humanization service.
type API interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
	Document(ctx context.Context, id string) (*Document, error)
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	quota      bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is lets errors.Is match quota failures against ErrUpstreamQuota.
func (e *APIError) Is(target error) bool {
	return target == ErrUpstreamQuota && e.quota
}

// Client calls the humanization service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. A zero timeout falls back to 30 seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit creates a humanization job.
func (c *Client) Submit(ctx context.Context, body SubmitRequest) (*SubmitResponse, error) {
	var out SubmitResponse
	if err := c.post(ctx, "submit", "/submit", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Document fetches the current state of a job.
func (c *Client) Document(ctx context.Context, id string) (*Document, error) {
	var out Document
	if err := c.post(ctx, "document", "/document", map[string]string{"id": id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to serialize %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return newAPIError(op, resp.StatusCode, raw)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func newAPIError(op string, status int, raw []byte) *APIError {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			msg = body.Message
		} else if body.Error != "" {
			msg = body.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &APIError{
		Op:         op,
		StatusCode: status,
		Message:    msg,
		quota:      isQuotaFailure(status, msg),
	}
}

func isQuotaFailure(status int, msg string) bool {
	if status == http.StatusPaymentRequired || status == http.StatusTooManyRequests {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "credit") || strings.Contains(lower, "quota")
}

// IsQuota reports whether err is an upstream quota failure.
func IsQuota(err error) bool {
	return errors.Is(err, ErrUpstreamQuota)
}
