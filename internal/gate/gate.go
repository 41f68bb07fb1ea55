// Package gate decides whether a cache needs to issue a request now.
package gate

import (
	"sync"
	"time"
)

// Default windows.
const (
	DefaultStaleWindow = 5 * time.Minute
	DefaultBurstWindow = 200 * time.Millisecond
)

// Key identifies what a fetch would be for: the resolved URL and the
// identity it would be made under.
type Key struct {
	URL      string
	LoggedIn bool
	Token    string
}

// Marker records the last successful fetch. Token is "" for an anonymous fetch.
type Marker struct {
	URL       string
	Token     string
	FetchedAt time.Time
}

// NeedsFetch reports whether the data described by marker is unusable for key
// at now: no marker, a different URL, an identity mismatch, or older than
// stale.
func NeedsFetch(marker *Marker, key Key, now time.Time, stale time.Duration) bool {
	if marker == nil {
		return true
	}
	if marker.URL != key.URL {
		return true
	}
	if key.LoggedIn && marker.Token != key.Token {
		return true
	}
	if !key.LoggedIn && marker.Token != "" {
		return true
	}
	return now.Sub(marker.FetchedAt) > stale
}

// Decision is the outcome of Gate.Decide.
type Decision int

const (
	// Fetch means a request should be issued now.
	Fetch Decision = iota
	// Fresh means the marker is still valid for the key.
	Fresh
	// Suppressed means a fetch is needed but one was allowed within the
	// burst window.
	Suppressed
)

func (d Decision) String() string {
	switch d {
	case Fetch:
		return "fetch"
	case Fresh:
		return "fresh"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

// Gate adds burst suppression to NeedsFetch. One Gate per cache; it is safe
// for concurrent use.
type Gate struct {
	stale time.Duration
	burst time.Duration

	mu   sync.Mutex
	last time.Time // initiation time of the last allowed fetch
}

// New creates a Gate. Non-positive windows fall back to the defaults.
func New(stale, burst time.Duration) *Gate {
	if stale <= 0 {
		stale = DefaultStaleWindow
	}
	if burst <= 0 {
		burst = DefaultBurstWindow
	}
	return &Gate{stale: stale, burst: burst}
}

// StaleWindow returns the configured staleness window.
func (g *Gate) StaleWindow() time.Duration { return g.stale }

// Decide classifies a trigger. When it returns Fetch the initiation time is
// recorded, so a second trigger within the burst window is Suppressed
// whatever its key.
func (g *Gate) Decide(marker *Marker, key Key, now time.Time) Decision {
	if !NeedsFetch(marker, key, now, g.stale) {
		return Fresh
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.last.IsZero() && now.Sub(g.last) < g.burst {
		return Suppressed
	}
	g.last = now
	return Fetch
}

// Allow reports whether Decide returns Fetch.
func (g *Gate) Allow(marker *Marker, key Key, now time.Time) bool {
	return g.Decide(marker, key, now) == Fetch
}
