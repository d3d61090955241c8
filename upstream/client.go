// Package upstream is the client for the external prediction and backend
// APIs. It forwards JSON and reports every failure as an error; deciding
// what to serve instead is left to the handlers.
package upstream

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

	"anoto/models"
)

const maxErrorBody = 4 << 10

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return "invalid request data: " + e.Body
	case http.StatusUnprocessableEntity:
		return "validation error: " + e.Body
	case http.StatusInternalServerError:
		return "upstream server error"
	}
	return fmt.Sprintf("upstream responded with status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	predictURL     string
	backendURL     string
	predictTimeout time.Duration
	httpClient     *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client for the two API bases. predictTimeout bounds
// Predict calls; timeout bounds everything else.
func NewClient(predictURL, backendURL string, predictTimeout, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		predictURL:     strings.TrimRight(predictURL, "/"),
		backendURL:     strings.TrimRight(backendURL, "/"),
		predictTimeout: predictTimeout,
		httpClient:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) PredictURL() string { return c.predictURL }
func (c *Client) BackendURL() string { return c.backendURL }

// Predict sends a GAD-7 answer set to the prediction API.
func (c *Client) Predict(ctx context.Context, answers models.GAD7Answers) (models.Prediction, error) {
	var out models.Prediction
	if err := c.predict(ctx, answers, &out); err != nil {
		return models.Prediction{}, err
	}
	return out, nil
}

// ForwardPredict sends body to the prediction API as is and returns the
// response untouched. body must be valid JSON.
func (c *Client) ForwardPredict(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.predict(ctx, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) predict(ctx context.Context, in, out any) error {
	if c.predictTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.predictTimeout)
		defer cancel()
	}
	if err := c.do(ctx, http.MethodPost, c.predictURL+"/predict", in, out); err != nil {
		return fmt.Errorf("upstream: predict: %w", err)
	}
	return nil
}

// AnalyzeJournal sends journal text to the backend for emotion analysis.
func (c *Client) AnalyzeJournal(ctx context.Context, text string) (models.Envelope[models.JournalData], error) {
	var out models.Envelope[models.JournalData]
	if err := c.do(ctx, http.MethodPost, c.backendURL+"/journals", models.JournalRequest{Text: text}, &out); err != nil {
		return out, fmt.Errorf("upstream: analyze journal: %w", err)
	}
	return out, nil
}

func (c *Client) ListTestimonials(ctx context.Context) (models.Envelope[models.TestimonialList], error) {
	var out models.Envelope[models.TestimonialList]
	if err := c.do(ctx, http.MethodGet, c.backendURL+"/testimonials", nil, &out); err != nil {
		return out, fmt.Errorf("upstream: list testimonials: %w", err)
	}
	return out, nil
}

// SubmitTestimonial posts a testimonial and returns the backend's JSON
// untouched.
func (c *Client) SubmitTestimonial(ctx context.Context, t models.Testimonial) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, c.backendURL+"/testimonials", t, &out); err != nil {
		return nil, fmt.Errorf("upstream: submit testimonial: %w", err)
	}
	return out, nil
}

func (c *Client) Statistics(ctx context.Context) (models.Envelope[models.StatsData], error) {
	var out models.Envelope[models.StatsData]
	if err := c.do(ctx, http.MethodGet, c.backendURL+"/statistics", nil, &out); err != nil {
		return out, fmt.Errorf("upstream: statistics: %w", err)
	}
	return out, nil
}

// Ping checks that base answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, base, nil)
	if err != nil {
		return fmt.Errorf("upstream: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: ping %s: %w", base, err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsTimeout reports whether err came from a deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
