package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/foodly/internal/checksum"
	"github.com/starford/foodly/internal/gate"
	"github.com/starford/foodly/internal/models"
	"github.com/starford/foodly/internal/session"
)

// SearchState is the query and tag filter behind the displayed collection.
type SearchState struct {
	Query  string
	Filter []models.Tag
}

func (s SearchState) clone() SearchState {
	s.Filter = append([]models.Tag(nil), s.Filter...)
	return s
}

// QueryCache owns the displayed recipe collection.
//
// Every fetch gets a generation number. Starting a fetch cancels the one in
// flight, and a response whose generation is no longer the latest is
// dropped, so the latest issued request always wins.
type QueryCache struct {
	client  Fetcher
	gate    *gate.Gate
	perPage int
	now     func() time.Time
	logger  *slog.Logger
	notify  Listener

	mu       sync.RWMutex
	search   SearchState
	recipes  []models.Recipe
	marker   *gate.Marker
	identity session.Identity
	loading  bool
	gen      uint64
	cancel   context.CancelFunc
	toggled  toggled
}

func newQueryCache(client Fetcher, cfg Config, o options) *QueryCache {
	return &QueryCache{
		client:  client,
		gate:    gate.New(cfg.StaleWindow, cfg.BurstWindow),
		perPage: cfg.PerPage,
		now:     o.now,
		logger:  o.logger,
		notify:  o.listener,
	}
}

// SetIdentity replaces the identity used for the next fetch.
func (q *QueryCache) SetIdentity(id session.Identity) {
	q.mu.Lock()
	q.identity = id
	q.mu.Unlock()
}

// SetQuery replaces the search query and refreshes.
func (q *QueryCache) SetQuery(ctx context.Context, query string) error {
	q.mu.Lock()
	q.search.Query = query
	q.mu.Unlock()
	return q.Refresh(ctx)
}

// SetFilter replaces the tag filter and refreshes.
func (q *QueryCache) SetFilter(ctx context.Context, filter []models.Tag) error {
	q.mu.Lock()
	q.search.Filter = append([]models.Tag(nil), filter...)
	q.mu.Unlock()
	return q.Refresh(ctx)
}

// SetSearch replaces query and filter together and refreshes once.
func (q *QueryCache) SetSearch(ctx context.Context, st SearchState) error {
	q.mu.Lock()
	q.search = st.clone()
	q.mu.Unlock()
	return q.Refresh(ctx)
}

// Fresh reports whether the collection on hand was fetched for the current
// search state and identity and is within the staleness window.
func (q *QueryCache) Fresh() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	key := gate.Key{
		URL:      q.client.Resolve(ListPath(q.search.Query, q.search.Filter, q.perPage)),
		LoggedIn: q.identity.LoggedIn,
		Token:    q.identity.Token,
	}
	return !gate.NeedsFetch(q.marker, key, q.now(), q.gate.StaleWindow())
}

// Refresh fetches the collection for the current search state unless the
// gate says the data on hand is still good or a fetch was just started.
// On failure the collection is kept, the marker cleared and the typed
// error returned.
func (q *QueryCache) Refresh(ctx context.Context) error {
	q.mu.Lock()
	path := ListPath(q.search.Query, q.search.Filter, q.perPage)
	url := q.client.Resolve(path)
	id := q.identity
	key := gate.Key{URL: url, LoggedIn: id.LoggedIn, Token: id.Token}

	if d := q.gate.Decide(q.marker, key, q.now()); d != gate.Fetch {
		q.mu.Unlock()
		q.logger.Debug("catalog: list skipped", slog.String("url", url), slog.String("reason", d.String()))
		return nil
	}

	if q.cancel != nil {
		q.cancel()
	}
	q.gen++
	gen := q.gen
	start := q.toggled.seq
	fctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.loading = true
	q.mu.Unlock()
	defer cancel()

	page, err := q.client.ListRecipes(fctx, path, id.Token)

	q.mu.Lock()
	if gen != q.gen {
		q.mu.Unlock()
		q.logger.Debug("catalog: superseded list response dropped",
			slog.String("url", url), slog.Uint64("generation", gen))
		return nil
	}
	q.loading = false
	q.cancel = nil
	if err != nil {
		q.marker = nil
		q.toggled.reset()
		q.mu.Unlock()
		q.logger.Warn("catalog: list recipes failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return fmt.Errorf("catalog: list recipes: %w", err)
	}
	for i, r := range page.Records {
		page.Records[i] = q.toggled.since(start, r)
	}
	q.toggled.reset()
	q.recipes = page.Records
	q.marker = &gate.Marker{URL: url, Token: id.Token, FetchedAt: q.now()}
	q.mu.Unlock()

	q.logger.Debug("catalog: list refreshed",
		slog.String("url", url),
		slog.Int("count", len(page.Records)),
		slog.String("token", checksum.Fingerprint(id.Token)))
	q.notify(RecipesUpdated, 0)
	return nil
}

// Search returns the current search state.
func (q *QueryCache) Search() SearchState {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.search.clone()
}

// Recipes returns a copy of the displayed collection.
func (q *QueryCache) Recipes() []models.Recipe {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]models.Recipe(nil), q.recipes...)
}

// Marker returns a copy of the last-fetch marker, nil when unset.
func (q *QueryCache) Marker() *gate.Marker {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.marker == nil {
		return nil
	}
	m := *q.marker
	return &m
}

// Loading reports whether the latest fetch is in flight.
func (q *QueryCache) Loading() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.loading
}

// find looks id up in the collection. Caller holds q.mu.
func (q *QueryCache) find(id int) (models.Recipe, bool) {
	for _, r := range q.recipes {
		if r.ID == id {
			return r, true
		}
	}
	return models.Recipe{}, false
}

// setBookmark rewrites every entry with id and records the result for a
// fetch in flight. Caller holds q.mu for writing.
func (q *QueryCache) setBookmark(id int, v bool) {
	q.toggled.record(id, v)
	for i := range q.recipes {
		if q.recipes[i].ID == id {
			q.recipes[i] = q.recipes[i].WithBookmark(v)
		}
	}
}
