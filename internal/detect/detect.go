// Package detect asks an AI-detection service how machine-written a text looks.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/01moynul/ai-humanizer/internal/metrics"
)

var (
	ErrTextTooShort = errors.New("text is too short")
	ErrUpstream     = errors.New("detection service failed")
)

// Result is a detection verdict.
type Result struct {
	// Score is the probability of AI authorship as a percentage, 0 to 100.
	Score float64 `json:"score"`
}

// Client calls the detection endpoint.
type Client struct {
	url        string
	minLength  int
	httpClient *http.Client
}

func NewClient(url string, minLength int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if minLength <= 0 {
		minLength = 50
	}
	return &Client{
		url:        url,
		minLength:  minLength,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Detect scores text. Short input is rejected without a network call.
func (c *Client) Detect(ctx context.Context, text string) (*Result, error) {
	if n := utf8.RuneCountInString(text); n < c.minLength {
		return nil, fmt.Errorf("%w: %d characters, need at least %d", ErrTextTooShort, n, c.minLength)
	}

	jsonData, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.DetectRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		metrics.DetectRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var out struct {
		Score *float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Score == nil {
		metrics.DetectRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: malformed response", ErrUpstream)
	}

	score := math.Max(0, math.Min(1, *out.Score))
	metrics.DetectRequests.WithLabelValues("ok").Inc()
	return &Result{Score: math.Round(score*10000) / 100}, nil
}
