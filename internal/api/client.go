// Package api is the HTTP client for the recipes backend.
//
// Every call carries its own deadline, an optional bearer token, and maps
// non-2xx responses to apperr categories. The client holds no session state;
// callers pass the token explicitly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/foodly/internal/apperr"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout is applied to every call. Zero disables the per-call deadline.
	Timeout time.Duration
	// RatePerSecond limits outbound calls. Zero disables limiting.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client talks to the recipes backend.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new Client.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c
}

// Resolve returns the absolute URL for a path relative to the API root.
func (c *Client) Resolve(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// statusError is a non-2xx response before it is categorised by the caller.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("status %d", e.status)
	}
	return fmt.Sprintf("status %d: %s", e.status, e.message)
}

// classify maps err to an apperr category. Transport failures are already
// *apperr.Error; status failures go through mapStatus.
func classify(err error, mapStatus func(status int, msg string) *apperr.Error) error {
	var se *statusError
	if errors.As(err, &se) {
		return mapStatus(se.status, se.message)
	}
	return err
}

// fetchStatus is the default status mapping for read endpoints.
func fetchStatus(status int, msg string) *apperr.Error {
	return apperr.Fetch(status, msg)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.Network(fmt.Errorf("rate limit: %w", err))
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Resolve(path), body)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api: request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return apperr.Network(err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api: response",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{status: resp.StatusCode, message: readMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Fetch(resp.StatusCode, "decode response").WithCause(err)
	}
	return nil
}

// readMessage extracts a human-readable message from an error body.
// The backend answers with plain text; JSON bodies with an "error" or
// "message" field are also understood.
func readMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "{") {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			if payload.Error != "" {
				return payload.Error
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
	}
	return text
}
