package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/foodly/internal/apperr"
	"github.com/starford/foodly/internal/mockapi"
)

func quiet() *slog.Logger { return slog.New(slog.NewJSONHandler(io.Discard, nil)) }

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/", Timeout: 5 * time.Second, Logger: quiet()})
}

func backend(t *testing.T) (*mockapi.Server, *Client) {
	t.Helper()
	s := mockapi.New(mockapi.WithLogger(quiet()))
	return s, newTestClient(t, s.Handler())
}

func TestResolve(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://api.local/"})
	assert.Equal(t, "http://api.local/recipes", c.Resolve("/recipes"))
	assert.Equal(t, "http://api.local/tags", c.Resolve("tags"))
}

func TestListRecipes_BearerHeader(t *testing.T) {
	s, c := backend(t)
	ctx := context.Background()

	_, err := c.ListRecipes(ctx, "/recipes", "")
	require.NoError(t, err)
	_, err = c.ListRecipes(ctx, "/recipes", "abc")
	require.NoError(t, err)

	reqs := s.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, "Bearer abc", reqs[1].Authorization)
}

func TestGetRecipe_NotFound(t *testing.T) {
	_, c := backend(t)
	_, err := c.GetRecipe(context.Background(), "/recipes/999", "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "The recipe was not found.", err.Error())
}

func TestLogin(t *testing.T) {
	_, c := backend(t)
	ctx := context.Background()

	token, err := c.Login(ctx, mockapi.GuestUsername, mockapi.GuestPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = c.Login(ctx, mockapi.GuestUsername, "wrong-password")
	require.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, "Failed to authorize access", err.Error())

	_, err = c.Login(ctx, "nobody", "whatever1")
	require.ErrorIs(t, err, apperr.ErrAuth)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusNotFound, ae.Status)
}

func TestRegister_DuplicateIsValidation(t *testing.T) {
	_, c := backend(t)
	_, err := c.Register(context.Background(), mockapi.GuestUsername, "longenough")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "Failed to insert new user")
}

func TestProfile(t *testing.T) {
	_, c := backend(t)
	ctx := context.Background()

	_, err := c.Profile(ctx, "stale")
	require.ErrorIs(t, err, apperr.ErrStaleToken)

	token, err := c.Login(ctx, mockapi.GuestUsername, mockapi.GuestPassword)
	require.NoError(t, err)
	p, err := c.Profile(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, mockapi.GuestUsername, p.Username)
}

func TestToggleBookmarkAndList(t *testing.T) {
	_, c := backend(t)
	ctx := context.Background()

	_, err := c.ToggleBookmark(ctx, 1, "")
	require.ErrorIs(t, err, apperr.ErrAuth)

	token, err := c.Login(ctx, mockapi.GuestUsername, mockapi.GuestPassword)
	require.NoError(t, err)

	v, err := c.ToggleBookmark(ctx, 2, token)
	require.NoError(t, err)
	assert.True(t, v)

	page, err := c.Bookmarks(ctx, 1, 10, token)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, 2, page.Records[0].ID)

	_, err = c.Bookmarks(ctx, 1, 10, "")
	require.ErrorIs(t, err, apperr.ErrAuth)
}

func TestTags(t *testing.T) {
	_, c := backend(t)
	tags, err := c.Tags(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tags)
}

func TestTransportErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(Options{BaseURL: srv.URL, Logger: quiet()})

	_, err := c.ListRecipes(context.Background(), "/recipes", "")
	require.ErrorIs(t, err, apperr.ErrNetwork)
}

func TestServerErrorIsFetch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"database down"}`))
	}))

	_, err := c.ListRecipes(context.Background(), "/recipes", "")
	require.ErrorIs(t, err, apperr.ErrFetch)
	assert.Equal(t, "database down", err.Error())
}

func TestMalformedBodyIsFetch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))

	_, err := c.GetRecipe(context.Background(), "/recipes/1", "")
	require.ErrorIs(t, err, apperr.ErrFetch)
}

func TestTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(block); srv.Close() })
	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: quiet()})

	_, err := c.Tags(context.Background())
	require.ErrorIs(t, err, apperr.ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimit(t *testing.T) {
	_, c0 := backend(t)
	c := NewClient(Options{BaseURL: c0.baseURL, RatePerSecond: 20, Burst: 1, Logger: quiet()})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Tags(ctx)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
