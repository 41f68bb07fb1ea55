// Package browser is the glue between the user-facing surfaces (CLI, REPL,
// MCP) and the core: it owns the session store and the catalog, pushes the
// session's identity into the catalog after every session change, re-runs
// the refresh, and publishes events.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/foodly/internal/apperr"
	"github.com/starford/foodly/internal/catalog"
	"github.com/starford/foodly/internal/events"
	"github.com/starford/foodly/internal/models"
	"github.com/starford/foodly/internal/session"
	"github.com/starford/foodly/internal/storage"
)

// Errors returned by the facade itself.
var (
	ErrLoggedOut = errors.New("browser: not logged in")
	ErrBusy      = errors.New("browser: request suppressed, try again")
)

// Backend is everything the facade needs from the API client.
type Backend interface {
	session.Backend
	catalog.Fetcher
	Tags(ctx context.Context) ([]models.Tag, error)
	Bookmarks(ctx context.Context, page, perPage int, token string) (models.Pagination[models.Recipe], error)
}

// View is a consistent snapshot of session and catalog.
type View struct {
	Session session.Session
	catalog.View
}

type options struct {
	now    func() time.Time
	logger *slog.Logger
	broker *events.Broker
}

// Option configures a Browser.
type Option func(*options)

// WithClock overrides time.Now in the session and catalog.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBroker publishes events on b instead of a private broker.
func WithBroker(b *events.Broker) Option {
	return func(o *options) { o.broker = b }
}

// Browser is the facade.
type Browser struct {
	api     Backend
	sess    *session.Store
	cat     *catalog.Catalog
	broker  *events.Broker
	logger  *slog.Logger
	perPage int
}

// New builds a Browser. Call Start before use.
func New(api Backend, tokens storage.TokenStore, cfg catalog.Config, opts ...Option) *Browser {
	o := options{now: time.Now, logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.broker == nil {
		o.broker = events.NewBroker()
	}

	cat := catalog.New(api, cfg,
		catalog.WithClock(o.now),
		catalog.WithLogger(o.logger),
		catalog.WithListener(o.broker.PublishChange))

	return &Browser{
		api:     api,
		sess:    session.New(api, tokens, o.logger, session.WithClock(o.now)),
		cat:     cat,
		broker:  o.broker,
		logger:  o.logger,
		perPage: cat.Config().PerPage,
	}
}

// Events returns the broker the browser publishes on.
func (b *Browser) Events() *events.Broker { return b.broker }

// Start restores the session and loads the initial collection.
func (b *Browser) Start(ctx context.Context) error {
	b.sess.Rehydrate(ctx)
	b.pushIdentity()
	return b.Refresh(ctx)
}

// Session returns the session snapshot.
func (b *Browser) Session() session.Session { return b.sess.Session() }

// Login logs in and reloads the collection under the new identity. A failed
// reload is logged; the login itself stands.
func (b *Browser) Login(ctx context.Context, username, password string) error {
	if err := b.sess.Login(ctx, username, password); err != nil {
		return err
	}
	b.pushIdentity()
	b.refreshQuietly(ctx)
	return nil
}

// Logout logs out and reloads the collection anonymously.
func (b *Browser) Logout(ctx context.Context) {
	b.sess.Logout()
	b.pushIdentity()
	b.refreshQuietly(ctx)
}

// Register creates an account without logging in.
func (b *Browser) Register(ctx context.Context, username, password string) (models.User, error) {
	return b.sess.Register(ctx, username, password)
}

// Whoami looks up the profile of the logged-in user.
func (b *Browser) Whoami(ctx context.Context) (models.Profile, error) {
	s := b.sess.Session()
	if !s.IsLoggedIn {
		return models.Profile{}, ErrLoggedOut
	}
	return b.api.Profile(ctx, s.Token)
}

// SessionChanged reconciles with a token written by another process and,
// when it changed, pushes the new identity and reloads.
func (b *Browser) SessionChanged(ctx context.Context) {
	if !b.sess.Sync(ctx) {
		return
	}
	b.pushIdentity()
	b.refreshQuietly(ctx)
}

// Watch follows the token file at path until ctx is cancelled.
func (b *Browser) Watch(ctx context.Context, path string) error {
	return session.WatchToken(ctx, path, b.logger, func() { b.SessionChanged(ctx) })
}

// Refresh reloads the collection if the gate asks for it.
func (b *Browser) Refresh(ctx context.Context) error {
	return b.cat.Query.Refresh(ctx)
}

// Search sets the query and waits for the matching collection.
func (b *Browser) Search(ctx context.Context, query string) error {
	if err := b.cat.Query.SetQuery(ctx, query); err != nil {
		return err
	}
	return b.settle(ctx)
}

// Filter sets the tag filter and waits for the matching collection.
func (b *Browser) Filter(ctx context.Context, tags []models.Tag) error {
	if err := b.cat.Query.SetFilter(ctx, tags); err != nil {
		return err
	}
	return b.settle(ctx)
}

// Find sets query and filter slugs together and waits for the collection.
func (b *Browser) Find(ctx context.Context, query string, slugs []string) error {
	tags, err := b.resolveTags(ctx, slugs)
	if err != nil {
		return err
	}
	if err := b.cat.Query.SetSearch(ctx, catalog.SearchState{Query: query, Filter: tags}); err != nil {
		return err
	}
	return b.settle(ctx)
}

// FilterBySlugs resolves slugs against the tag list and filters by them.
func (b *Browser) FilterBySlugs(ctx context.Context, slugs []string) error {
	tags, err := b.resolveTags(ctx, slugs)
	if err != nil {
		return err
	}
	return b.Filter(ctx, tags)
}

// Open focuses recipe id and returns it.
func (b *Browser) Open(ctx context.Context, id int) (models.Recipe, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := b.cat.Entity.FetchRecipe(ctx, id); err != nil {
			return models.Recipe{}, err
		}
		if r, ok := b.cat.Entity.Recipe(); ok && r.ID == id {
			return r, nil
		}
		if err := b.wait(ctx); err != nil {
			return models.Recipe{}, err
		}
	}
	return models.Recipe{}, ErrBusy
}

// ToggleBookmark flips the bookmark on recipe id.
func (b *Browser) ToggleBookmark(ctx context.Context, id int) (bool, error) {
	if !b.sess.Session().IsLoggedIn {
		return false, ErrLoggedOut
	}
	return b.cat.Bookmarks.ToggleBookmark(ctx, id)
}

// Tags lists every tag.
func (b *Browser) Tags(ctx context.Context) ([]models.Tag, error) {
	return b.api.Tags(ctx)
}

// Bookmarks lists the user's bookmarked recipes. Not cached.
func (b *Browser) Bookmarks(ctx context.Context, page, perPage int) (models.Pagination[models.Recipe], error) {
	s := b.sess.Session()
	if !s.IsLoggedIn {
		return models.Pagination[models.Recipe]{}, ErrLoggedOut
	}
	if perPage <= 0 {
		perPage = b.perPage
	}
	return b.api.Bookmarks(ctx, max(page, 1), perPage, s.Token)
}

// View snapshots session and catalog.
func (b *Browser) View() View {
	return View{Session: b.sess.Session(), View: b.cat.View()}
}

func (b *Browser) pushIdentity() {
	id := b.sess.Identity()
	b.cat.SetIdentity(id)
	b.broker.Publish(events.Event{
		Type: events.SessionChanged,
		Data: map[string]bool{"logged_in": id.LoggedIn},
	})
}

func (b *Browser) refreshQuietly(ctx context.Context) {
	if err := b.settle(ctx); err != nil {
		b.logger.Warn("browser: refresh after session change failed", slog.String("error", err.Error()))
	}
}

// settle refreshes until the collection matches the current search, giving
// a burst-suppressed trigger one retry after the burst window.
func (b *Browser) settle(ctx context.Context) error {
	for attempt := 0; attempt < 2; attempt++ {
		if err := b.cat.Query.Refresh(ctx); err != nil {
			return err
		}
		if b.cat.Query.Fresh() {
			return nil
		}
		if err := b.wait(ctx); err != nil {
			return err
		}
	}
	return ErrBusy
}

func (b *Browser) wait(ctx context.Context) error {
	t := time.NewTimer(b.cat.Config().BurstWindow)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (b *Browser) resolveTags(ctx context.Context, slugs []string) ([]models.Tag, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	all, err := b.api.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("browser: list tags: %w", err)
	}
	bySlug := make(map[string]models.Tag, len(all))
	for _, t := range all {
		bySlug[t.Slug] = t
	}
	out := make([]models.Tag, 0, len(slugs))
	for _, s := range slugs {
		t, ok := bySlug[s]
		if !ok {
			return nil, apperr.NotFound(fmt.Sprintf("unknown tag %q", s))
		}
		out = append(out, t)
	}
	return out, nil
}
