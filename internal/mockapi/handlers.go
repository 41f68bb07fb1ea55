package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/foodly/internal/models"
)

// paginate clamps page and per_page the way the backend does: defaults 1
// and 10, per_page below 1 means 10, page clamped to [1, maxPage].
func paginate(r *http.Request, total int) (page, perPage, offset int) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}
	perPage, err = strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 10
	}
	maxPage := 1
	if total > 0 {
		maxPage = (total-1)/perPage + 1
	}
	page = min(max(page, 1), maxPage)
	return page, perPage, perPage * (page - 1)
}

// tagFilter returns the tags[] slugs of the request.
func tagFilter(r *http.Request) []string {
	return r.URL.Query()["tags[]"]
}

func hasTags(r *recipe, slugs []string) bool {
	for _, want := range slugs {
		found := false
		for _, t := range r.Tags {
			if t == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Server) page(w http.ResponseWriter, r *http.Request, match func(*recipe) bool) {
	uid := userID(r)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []*recipe
	for _, rec := range s.recipes {
		if match(rec) {
			hits = append(hits, rec)
		}
	}
	page, perPage, offset := paginate(r, len(hits))
	out := models.Pagination[models.Recipe]{
		Records:     []models.Recipe{},
		Total:       len(hits),
		CurrentPage: page,
		PerPage:     perPage,
	}
	for i := offset; i < len(hits) && i < offset+perPage; i++ {
		out.Records = append(out.Records, s.view(hits[i], uid))
	}
	writeJSON(w, http.StatusOK, out)
}

// listRecipes handles GET /recipes[?tags[]=slug].
func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	slugs := tagFilter(r)
	s.page(w, r, func(rec *recipe) bool { return hasTags(rec, slugs) })
}

// searchRecipes handles GET /recipes/search/{query}: case-insensitive title match.
func (s *Server) searchRecipes(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if decoded, err := url.PathUnescape(query); err == nil {
		query = decoded
	}
	query = strings.ToLower(query)
	slugs := tagFilter(r)
	s.page(w, r, func(rec *recipe) bool {
		return strings.Contains(strings.ToLower(rec.Title), query) && hasTags(rec, slugs)
	})
}

// getRecipe handles GET /recipes/{id}.
func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeText(w, http.StatusNotFound, "The recipe was not found.")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.findRecipe(id)
	if rec == nil {
		writeText(w, http.StatusNotFound, "The recipe was not found.")
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec, userID(r)))
}

// listBookmarks handles GET /bookmarks.
func (s *Server) listBookmarks(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == 0 {
		writeText(w, http.StatusUnauthorized, "Please log in to see your bookmarked recipes.")
		return
	}
	s.page(w, r, func(rec *recipe) bool { return s.bookmarks[uid][rec.ID] })
}

// toggleBookmark handles PUT /bookmarks/{id} and answers the resulting state.
func (s *Server) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == 0 {
		writeText(w, http.StatusUnauthorized, "Please log in to edit your bookmarks.")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeText(w, http.StatusNotFound, "The recipe was not found.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findRecipe(id) == nil {
		writeText(w, http.StatusNotFound, "The recipe was not found.")
		return
	}
	if s.bookmarks[uid] == nil {
		s.bookmarks[uid] = make(map[int]bool)
	}
	state := !s.bookmarks[uid][id]
	if state {
		s.bookmarks[uid][id] = true
	} else {
		delete(s.bookmarks[uid], id)
	}
	writeJSON(w, http.StatusOK, state)
}

// listTags handles GET /tags.
func (s *Server) listTags(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.tags)
}

// getTag handles GET /tags/{slug}.
func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tags {
		if t.Slug == slug {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeText(w, http.StatusNotFound, "Tag not found.")
}

func decodeCredentials(r *http.Request) (models.Credentials, bool) {
	var c models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, false
	}
	return c, true
}

// register handles POST /register. A duplicate username is a 500, as in the
// backend.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(r)
	if !ok || len(c.Username) < 3 || len(c.Password) < 8 {
		writeText(w, http.StatusBadRequest, "Invalid user input")
		return
	}
	id, err := s.AddUser(c.Username, c.Password)
	if errors.Is(err, errDuplicateUser) {
		writeText(w, http.StatusInternalServerError, "Failed to insert new user: "+err.Error())
		return
	}
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Failed to hash password: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.User{ID: id, Username: c.Username})
}

// login handles POST /login.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(r)
	if !ok || c.Username == "" || c.Password == "" {
		writeText(w, http.StatusBadRequest, "Invalid user input")
		return
	}

	s.mu.RLock()
	u, found := s.users[strings.ToLower(c.Username)]
	s.mu.RUnlock()
	if !found {
		writeText(w, http.StatusNotFound, "Failed to find user: record not found")
		return
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(c.Password)) != nil {
		writeText(w, http.StatusUnauthorized, "Failed to authorize access")
		return
	}

	token, err := s.mint(u.id)
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Failed to generate JWT token")
		return
	}
	writeJSON(w, http.StatusOK, models.AuthToken{AuthToken: token})
}

// profile handles GET /profile.
func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == 0 {
		writeText(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.id == uid {
			writeJSON(w, http.StatusOK, models.Profile{Username: u.username})
			return
		}
	}
	writeText(w, http.StatusNotFound, "User profile not found")
}
