package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/starford/foodly/internal/gate"
	"github.com/starford/foodly/internal/models"
	"github.com/starford/foodly/internal/session"
)

// entry is a fetched recipe with the marker of the fetch that produced it.
type entry struct {
	marker gate.Marker
	recipe models.Recipe
}

// fetched is a network response and the bookmark sequence at request start.
type fetched struct {
	recipe models.Recipe
	start  uint64
}

// EntityCache owns the single focused recipe.
//
// A recipe present in the displayed collection is adopted without a request.
// Otherwise fetched records are kept in an expirable LRU keyed by URL whose
// markers feed the gate, and concurrent fetches of one URL are coalesced.
type EntityCache struct {
	client Fetcher
	query  *QueryCache
	gate   *gate.Gate
	now    func() time.Time
	logger *slog.Logger
	notify Listener
	lru    *expirable.LRU[string, entry]
	group  singleflight.Group

	mu       sync.RWMutex
	recipe   *models.Recipe
	identity session.Identity
	inflight int
	gen      uint64 // bumped by every FetchRecipe; only the latest sets the focus
	pending  int    // network fetches not yet landed
	toggled  toggled
}

func newEntityCache(client Fetcher, q *QueryCache, cfg Config, o options) *EntityCache {
	return &EntityCache{
		client: client,
		query:  q,
		gate:   gate.New(cfg.StaleWindow, cfg.BurstWindow),
		now:    o.now,
		logger: o.logger,
		notify: o.listener,
		lru:    expirable.NewLRU[string, entry](cfg.EntitySize, nil, cfg.StaleWindow),
	}
}

// SetIdentity replaces the identity used for the next fetch.
func (e *EntityCache) SetIdentity(id session.Identity) {
	e.mu.Lock()
	e.identity = id
	e.mu.Unlock()
}

// Recipe returns the focused recipe.
func (e *EntityCache) Recipe() (models.Recipe, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.recipe == nil {
		return models.Recipe{}, false
	}
	return *e.recipe, true
}

// Loading reports whether a recipe fetch is in flight.
func (e *EntityCache) Loading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inflight > 0
}

// FetchRecipe focuses recipe id, from the collection when it is there and
// from the network otherwise. A suppressed trigger leaves the focus as is.
func (e *EntityCache) FetchRecipe(ctx context.Context, id int) error {
	if e.adoptFromList(id) {
		e.notify(RecipeUpdated, id)
		return nil
	}

	path := RecipePath(id)
	url := e.client.Resolve(path)

	e.mu.Lock()
	e.gen++
	gen := e.gen
	ident := e.identity
	e.mu.Unlock()

	var marker *gate.Marker
	cached, hit := e.lru.Get(url)
	if hit {
		m := cached.marker
		marker = &m
	}

	key := gate.Key{URL: url, LoggedIn: ident.LoggedIn, Token: ident.Token}
	now := e.now()
	if !gate.NeedsFetch(marker, key, now, e.gate.StaleWindow()) {
		if e.focus(gen, cached.recipe) {
			e.notify(RecipeUpdated, id)
		}
		return nil
	}
	if !e.gate.Allow(marker, key, now) {
		e.logger.Debug("catalog: recipe fetch suppressed", slog.String("url", url))
		return nil
	}

	e.mu.Lock()
	e.pending++
	e.mu.Unlock()

	v, err, shared := e.group.Do(url+"|"+ident.Token, func() (any, error) {
		e.mu.Lock()
		e.inflight++
		start := e.toggled.seq
		e.mu.Unlock()
		defer e.setInflight(-1)
		r, err := e.client.GetRecipe(ctx, path, ident.Token)
		return fetched{recipe: r, start: start}, err
	})

	e.mu.Lock()
	e.pending--
	if err != nil {
		e.lru.Remove(url)
		e.settle()
		e.mu.Unlock()
		e.logger.Warn("catalog: get recipe failed",
			slog.Int("id", id),
			slog.String("error", err.Error()))
		return fmt.Errorf("catalog: get recipe %d: %w", id, err)
	}

	f := v.(fetched)
	r := e.toggled.since(f.start, f.recipe)
	e.lru.Add(url, entry{
		marker: gate.Marker{URL: url, Token: ident.Token, FetchedAt: e.now()},
		recipe: r,
	})
	focused := gen == e.gen
	if focused {
		e.recipe = &r
	}
	e.settle()
	e.mu.Unlock()

	if focused {
		e.logger.Debug("catalog: recipe fetched", slog.Int("id", id), slog.Bool("shared", shared))
		e.notify(RecipeUpdated, id)
	}
	return nil
}

// settle drops recorded bookmark results once no fetch is pending.
// Caller holds e.mu for writing.
func (e *EntityCache) settle() {
	if e.pending == 0 {
		e.toggled.reset()
	}
}

// adoptFromList focuses id from the collection. Takes q.mu then e.mu.
func (e *EntityCache) adoptFromList(id int) bool {
	e.query.mu.RLock()
	defer e.query.mu.RUnlock()
	r, ok := e.query.find(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	e.gen++
	e.recipe = &r
	e.mu.Unlock()
	return true
}

// focus replaces the focused recipe when gen is still the latest request.
func (e *EntityCache) focus(gen uint64, r models.Recipe) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return false
	}
	e.recipe = &r
	return true
}

func (e *EntityCache) setInflight(delta int) {
	e.mu.Lock()
	e.inflight += delta
	e.mu.Unlock()
}

// setBookmark rewrites the focused recipe and the cached record for id, and
// records the result for fetches in flight. Caller holds e.mu for writing.
func (e *EntityCache) setBookmark(id int, v bool) {
	if e.pending > 0 {
		e.toggled.record(id, v)
	}
	if e.recipe != nil && e.recipe.ID == id {
		r := e.recipe.WithBookmark(v)
		e.recipe = &r
	}
	url := e.client.Resolve(RecipePath(id))
	if ent, ok := e.lru.Peek(url); ok {
		ent.recipe = ent.recipe.WithBookmark(v)
		e.lru.Add(url, ent)
	}
}
