// Package catalog holds the client-side view of the recipe catalog: the
// displayed collection (QueryCache), one focused recipe (EntityCache), and
// the bookmark mutation that keeps both consistent (BookmarkSync).
//
// Identity is pushed in with SetIdentity; nothing here reads the session.
// Lock order is QueryCache.mu before EntityCache.mu.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/foodly/internal/gate"
	"github.com/starford/foodly/internal/models"
	"github.com/starford/foodly/internal/session"
)

// Change kinds passed to a Listener.
const (
	RecipesUpdated  = "recipes.updated"
	RecipeUpdated   = "recipe.updated"
	BookmarkToggled = "bookmark.toggled"
)

// Listener is called after a successful state change. id is 0 for
// collection-wide changes.
type Listener func(kind string, id int)

// Fetcher is the subset of the API client the caches use.
type Fetcher interface {
	Resolve(path string) string
	ListRecipes(ctx context.Context, path, token string) (models.Pagination[models.Recipe], error)
	GetRecipe(ctx context.Context, path, token string) (models.Recipe, error)
	ToggleBookmark(ctx context.Context, id int, token string) (bool, error)
}

// Config tunes the caches. Zero values fall back to defaults.
type Config struct {
	StaleWindow time.Duration
	BurstWindow time.Duration
	PerPage     int
	EntitySize  int
}

const (
	defaultPerPage    = 12
	defaultEntitySize = 64
)

func (c Config) withDefaults() Config {
	if c.StaleWindow <= 0 {
		c.StaleWindow = gate.DefaultStaleWindow
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = gate.DefaultBurstWindow
	}
	if c.PerPage <= 0 {
		c.PerPage = defaultPerPage
	}
	if c.EntitySize <= 0 {
		c.EntitySize = defaultEntitySize
	}
	return c
}

type options struct {
	now      func() time.Time
	logger   *slog.Logger
	listener Listener
}

// Option configures a Catalog.
type Option func(*options)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithListener registers a change listener.
func WithListener(fn Listener) Option {
	return func(o *options) { o.listener = fn }
}

// Catalog wires the three components together over one Fetcher.
type Catalog struct {
	Query     *QueryCache
	Entity    *EntityCache
	Bookmarks *BookmarkSync

	cfg Config
}

// New builds a Catalog.
func New(client Fetcher, cfg Config, opts ...Option) *Catalog {
	o := options{now: time.Now, logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.listener == nil {
		o.listener = func(string, int) {}
	}
	cfg = cfg.withDefaults()

	q := newQueryCache(client, cfg, o)
	e := newEntityCache(client, q, cfg, o)
	b := newBookmarkSync(client, q, e, o)
	return &Catalog{Query: q, Entity: e, Bookmarks: b, cfg: cfg}
}

// Config returns the effective configuration, defaults applied.
func (c *Catalog) Config() Config { return c.cfg }

// SetIdentity pushes id into every component. It does not refresh.
func (c *Catalog) SetIdentity(id session.Identity) {
	c.Query.SetIdentity(id)
	c.Entity.SetIdentity(id)
	c.Bookmarks.SetIdentity(id)
}

// View is a consistent snapshot of the catalog state.
type View struct {
	Search  SearchState
	Recipes []models.Recipe
	// Recipe is the focused recipe, nil when none.
	Recipe  *models.Recipe
	Loading bool
	Marker  *gate.Marker
}

// View snapshots both caches under their locks, in order.
func (c *Catalog) View() View {
	q, e := c.Query, c.Entity
	q.mu.RLock()
	defer q.mu.RUnlock()
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := View{
		Search:  q.search.clone(),
		Recipes: append([]models.Recipe(nil), q.recipes...),
		Loading: q.loading || e.inflight > 0,
	}
	if e.recipe != nil {
		r := *e.recipe
		v.Recipe = &r
	}
	if q.marker != nil {
		m := *q.marker
		v.Marker = &m
	}
	return v
}
