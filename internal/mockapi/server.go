// Package mockapi serves an in-memory implementation of the recipes backend.
// It backs local development (foodly mockapi) and the integration tests.
package mockapi

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/foodly/internal/models"
)

// Seeded account.
const (
	GuestUsername = "Guest"
	GuestPassword = "p4ssW0Rd!"
)

// tokenTTL matches the lifetime of tokens issued by the real backend.
const tokenTTL = 6 * time.Hour

type user struct {
	id       int
	username string
	hash     []byte
}

type recipe struct {
	models.Recipe
	owner int
}

// Request is one request seen by the server.
type Request struct {
	Method        string
	Path          string // path with raw query
	Authorization string
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HS512 signing secret.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithClock overrides time.Now for token minting and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIssuer replaces JWT minting on login. Issued tokens are remembered and
// accepted for the user they were issued to.
func WithIssuer(fn func(userID int) string) Option {
	return func(s *Server) { s.issue = fn }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is the in-memory backend.
type Server struct {
	secret []byte
	now    func() time.Time
	issue  func(userID int) string
	logger *slog.Logger

	mu        sync.RWMutex
	users     map[string]*user
	nextUser  int
	recipes   []*recipe
	tags      []models.Tag
	bookmarks map[int]map[int]bool // user id -> recipe id
	issued    map[string]int       // token -> user id
	requests  []Request
}

// New creates a Server seeded with the guest account, tags and recipes.
func New(opts ...Option) *Server {
	s := &Server{
		secret:    []byte("foodly-dev-secret"),
		now:       time.Now,
		logger:    slog.Default(),
		users:     make(map[string]*user),
		nextUser:  1,
		bookmarks: make(map[int]map[int]bool),
		issued:    make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}
	s.seed()
	return s
}

// Handler returns the chi router serving every backend route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.identify)

	r.Get("/recipes", s.listRecipes)
	r.Get("/recipes/search/{query}", s.searchRecipes)
	r.Get("/recipes/{id}", s.getRecipe)

	r.Get("/bookmarks", s.listBookmarks)
	r.Put("/bookmarks/{id}", s.toggleBookmark)

	r.Get("/tags", s.listTags)
	r.Get("/tags/{slug}", s.getTag)

	r.Post("/register", s.register)
	r.Post("/login", s.login)
	r.Get("/profile", s.profile)

	return r
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests returns how many requests matched method and a path prefix.
func (s *Server) CountRequests(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// AddRecipe inserts r, assigning an id when r.ID is zero, and returns it.
func (s *Server) AddRecipe(r models.Recipe, owner int) models.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		for _, e := range s.recipes {
			r.ID = max(r.ID, e.ID)
		}
		r.ID++
	}
	r.Bookmarked, r.Owned = nil, nil
	s.recipes = append(s.recipes, &recipe{Recipe: r, owner: owner})
	sort.Slice(s.recipes, func(i, j int) bool { return s.recipes[i].ID < s.recipes[j].ID })
	return r
}

// AddUser creates an account and returns its id.
func (s *Server) AddUser(username, password string) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[strings.ToLower(username)]; ok {
		return 0, errDuplicateUser
	}
	u := &user{id: s.nextUser, username: username, hash: hash}
	s.nextUser++
	s.users[strings.ToLower(username)] = u
	return u.id, nil
}

// view renders r for the caller. Bookmarked and Owned stay nil for
// anonymous callers. Caller holds s.mu.
func (s *Server) view(r *recipe, userID int) models.Recipe {
	out := r.Recipe
	if userID == 0 {
		out.Bookmarked, out.Owned = nil, nil
		return out
	}
	b := s.bookmarks[userID][r.ID]
	o := r.owner == userID
	out.Bookmarked, out.Owned = &b, &o
	return out
}

func (s *Server) findRecipe(id int) *recipe {
	for _, r := range s.recipes {
		if r.ID == id {
			return r
		}
	}
	return nil
}
