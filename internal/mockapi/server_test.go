package mockapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/foodly/internal/models"
)

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/login", "", models.Credentials{Username: GuestUsername, Password: GuestPassword})
	require.Equal(t, http.StatusOK, w.Code)
	return decode[models.AuthToken](t, w).AuthToken
}

func TestListRecipes_AnonymousHasNoBookmarkState(t *testing.T) {
	h := New().Handler()
	w := do(t, h, http.MethodGet, "/recipes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[models.Pagination[models.Recipe]](t, w)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 10, page.PerPage)
	require.Len(t, page.Records, 5)
	for _, r := range page.Records {
		assert.Nil(t, r.Bookmarked)
		assert.Nil(t, r.Owned)
	}
}

func TestListRecipes_TagFilter(t *testing.T) {
	h := New().Handler()
	w := do(t, h, http.MethodGet, "/recipes?tags[]=vegan&tags[]=gluten-free", "", nil)
	page := decode[models.Pagination[models.Recipe]](t, w)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "Chickpea Curry", page.Records[0].Title)
	assert.Equal(t, "Tomato Soup", page.Records[1].Title)
}

func TestSearch(t *testing.T) {
	h := New().Handler()
	w := do(t, h, http.MethodGet, "/recipes/search/SHRIMP?page=1&per_page=12", "", nil)
	page := decode[models.Pagination[models.Recipe]](t, w)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 12, page.PerPage)

	w = do(t, h, http.MethodGet, "/recipes/search/shrimp?page=1&per_page=12&tags[]=gluten-free", "", nil)
	page = decode[models.Pagination[models.Recipe]](t, w)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "Shrimp Tacos", page.Records[0].Title)
}

func TestPaginate_Clamps(t *testing.T) {
	h := New().Handler()
	w := do(t, h, http.MethodGet, "/recipes?page=9&per_page=2", "", nil)
	page := decode[models.Pagination[models.Recipe]](t, w)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Len(t, page.Records, 1)

	w = do(t, h, http.MethodGet, "/recipes?page=-1&per_page=0", "", nil)
	page = decode[models.Pagination[models.Recipe]](t, w)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 10, page.PerPage)
}

func TestGetRecipe(t *testing.T) {
	h := New().Handler()
	w := do(t, h, http.MethodGet, "/recipes/2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Chickpea Curry", decode[models.Recipe](t, w).Title)

	w = do(t, h, http.MethodGet, "/recipes/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "The recipe was not found.", w.Body.String())
}

func TestLogin(t *testing.T) {
	s := New()
	h := s.Handler()

	token := login(t, h)
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &claims{})
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.Claims.(*claims).SubjectID)

	w := do(t, h, http.MethodPost, "/login", "", models.Credentials{Username: GuestUsername, Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Failed to authorize access", w.Body.String())

	w = do(t, h, http.MethodPost, "/login", "", models.Credentials{Username: "nobody", Password: "whatever1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/login", "", models.Credentials{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_CustomIssuer(t *testing.T) {
	h := New(WithIssuer(func(int) string { return "abc" })).Handler()
	assert.Equal(t, "abc", login(t, h))

	w := do(t, h, http.MethodGet, "/profile", "abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, GuestUsername, decode[models.Profile](t, w).Username)
}

func TestProfile_ExpiredToken(t *testing.T) {
	now := time.Now()
	s := New(WithClock(func() time.Time { return now }))
	h := s.Handler()
	token := login(t, h)

	now = now.Add(tokenTTL + time.Minute)
	w := do(t, h, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister(t *testing.T) {
	h := New().Handler()

	w := do(t, h, http.MethodPost, "/register", "", models.Credentials{Username: "newcook", Password: "longenough"})
	require.Equal(t, http.StatusOK, w.Code)
	u := decode[models.User](t, w)
	assert.Equal(t, 2, u.ID)

	w = do(t, h, http.MethodPost, "/register", "", models.Credentials{Username: "newcook", Password: "longenough"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to insert new user")

	w = do(t, h, http.MethodPost, "/register", "", models.Credentials{Username: "ab", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleBookmark(t *testing.T) {
	s := New()
	h := s.Handler()
	token := login(t, h)

	w := do(t, h, http.MethodPut, "/bookmarks/3", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPut, "/bookmarks/3", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[bool](t, w))

	w = do(t, h, http.MethodGet, "/recipes/3", token, nil)
	r := decode[models.Recipe](t, w)
	require.NotNil(t, r.Bookmarked)
	assert.True(t, *r.Bookmarked)
	require.NotNil(t, r.Owned)
	assert.True(t, *r.Owned)

	w = do(t, h, http.MethodGet, "/bookmarks", token, nil)
	page := decode[models.Pagination[models.Recipe]](t, w)
	require.Len(t, page.Records, 1)
	assert.Equal(t, 3, page.Records[0].ID)

	w = do(t, h, http.MethodPut, "/bookmarks/3", token, nil)
	assert.False(t, decode[bool](t, w))

	w = do(t, h, http.MethodPut, "/bookmarks/999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTags(t *testing.T) {
	h := New().Handler()
	w := do(t, h, http.MethodGet, "/tags", "", nil)
	tags := decode[[]models.Tag](t, w)
	assert.Len(t, tags, 5)

	w = do(t, h, http.MethodGet, "/tags/vegan", "", nil)
	assert.Equal(t, "Vegan", decode[models.Tag](t, w).Label)

	w = do(t, h, http.MethodGet, "/tags/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestLog(t *testing.T) {
	s := New()
	h := s.Handler()
	do(t, h, http.MethodGet, "/recipes?tags[]=vegan", "tok", nil)

	reqs := s.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/recipes?tags[]=vegan", reqs[0].Path)
	assert.Equal(t, "Bearer tok", reqs[0].Authorization)
	assert.Equal(t, 1, s.CountRequests(http.MethodGet, "/recipes"))

	s.ResetRequests()
	assert.Empty(t, s.Requests())
}
