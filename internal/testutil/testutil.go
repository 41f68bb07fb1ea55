// Package testutil provides shared test helpers: a mock backend, API
// clients pointed at it, token stores and a controllable clock.
package testutil

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/foodly/internal/api"
	"github.com/starford/foodly/internal/mockapi"
	"github.com/starford/foodly/internal/storage"
)

// Logger returns a logger that drops everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Backend starts the mock backend on an httptest server that is closed
// with the test.
func Backend(t *testing.T, opts ...mockapi.Option) (*mockapi.Server, *httptest.Server) {
	t.Helper()
	s := mockapi.New(append([]mockapi.Option{mockapi.WithLogger(Logger())}, opts...)...)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

// Client returns an API client for baseURL with a short timeout and no
// rate limit.
func Client(t *testing.T, baseURL string) *api.Client {
	t.Helper()
	return api.NewClient(api.Options{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Logger:  Logger(),
	})
}

// TokenFile creates a file token store in a temporary directory.
func TokenFile(t *testing.T) *storage.File {
	t.Helper()
	f, err := storage.NewFile(filepath.Join(t.TempDir(), "token"))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock stopped at t0.
func NewClock(t0 time.Time) *Clock {
	return &Clock{now: t0}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
