package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/foodly/internal/models"
	"github.com/starford/foodly/internal/session"
)

// BookmarkSync toggles bookmarks and fans the server's answer out to both
// caches.
type BookmarkSync struct {
	client Fetcher
	query  *QueryCache
	entity *EntityCache
	logger *slog.Logger
	notify Listener

	mu       sync.RWMutex
	identity session.Identity
}

func newBookmarkSync(client Fetcher, q *QueryCache, e *EntityCache, o options) *BookmarkSync {
	return &BookmarkSync{
		client: client,
		query:  q,
		entity: e,
		logger: o.logger,
		notify: o.listener,
	}
}

// SetIdentity replaces the identity used for the next toggle.
func (b *BookmarkSync) SetIdentity(id session.Identity) {
	b.mu.Lock()
	b.identity = id
	b.mu.Unlock()
}

// ToggleBookmark flips the bookmark on recipe id and returns the server's
// resulting state. Logged out it does nothing and returns (false, nil).
// The returned value is authoritative: every cached copy of the recipe is
// rewritten with it in one critical section, and fetches still in flight
// apply it to their response when they land. On failure nothing changes.
func (b *BookmarkSync) ToggleBookmark(ctx context.Context, id int) (bool, error) {
	b.mu.RLock()
	ident := b.identity
	b.mu.RUnlock()
	if !ident.LoggedIn {
		b.logger.Debug("catalog: bookmark toggle ignored, logged out", slog.Int("id", id))
		return false, nil
	}

	v, err := b.client.ToggleBookmark(ctx, id, ident.Token)
	if err != nil {
		b.logger.Warn("catalog: toggle bookmark failed",
			slog.Int("id", id),
			slog.String("error", err.Error()))
		return false, fmt.Errorf("catalog: toggle bookmark %d: %w", id, err)
	}

	b.query.mu.Lock()
	b.entity.mu.Lock()
	b.query.setBookmark(id, v)
	b.entity.setBookmark(id, v)
	b.entity.mu.Unlock()
	b.query.mu.Unlock()

	b.logger.Info("catalog: bookmark toggled", slog.Int("id", id), slog.Bool("bookmarked", v))
	b.notify(BookmarkToggled, id)
	return v, nil
}

// toggled remembers bookmark results applied to a cache, each stamped with a
// sequence number. A fetch notes the sequence when it starts; when it lands,
// results stamped later are newer than the server snapshot it carries and
// are re-applied to it. Guarded by the owning cache's mu.
type toggled struct {
	seq  uint64
	last map[int]toggle
}

type toggle struct {
	on  bool
	seq uint64
}

func (t *toggled) record(id int, on bool) {
	t.seq++
	if t.last == nil {
		t.last = make(map[int]toggle)
	}
	t.last[id] = toggle{on: on, seq: t.seq}
}

// since returns r with any bookmark result recorded after start applied.
func (t *toggled) since(start uint64, r models.Recipe) models.Recipe {
	if m, ok := t.last[r.ID]; ok && m.seq > start {
		return r.WithBookmark(m.on)
	}
	return r
}

func (t *toggled) reset() {
	t.last = nil
}
