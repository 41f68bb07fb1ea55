// Package session owns the authenticated identity: the logged-in flag, the
// bearer token and the loading flag. It is the only writer of the TokenStore.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/foodly/internal/apperr"
	"github.com/starford/foodly/internal/checksum"
	"github.com/starford/foodly/internal/models"
	"github.com/starford/foodly/internal/storage"
)

// Session is a snapshot of the authentication state.
// IsLoggedIn implies Token != "".
type Session struct {
	IsLoading  bool
	IsLoggedIn bool
	Token      string
}

// Identity is the value pushed into the caches. Token is empty when
// logged out.
type Identity struct {
	LoggedIn bool
	Token    string
}

// Identity derives the identity carried by s.
func (s Session) Identity() Identity {
	if !s.IsLoggedIn {
		return Identity{}
	}
	return Identity{LoggedIn: true, Token: s.Token}
}

// Backend is the subset of the API client the session needs.
type Backend interface {
	Profile(ctx context.Context, token string) (models.Profile, error)
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) (models.User, error)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for the token expiry pre-check.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store holds the session. Methods are safe for concurrent use; the lock is
// released across network calls, so concurrent logins race and the last
// one to finish wins.
type Store struct {
	backend Backend
	tokens  storage.TokenStore
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	state Session
}

// New creates a Store in the loading state. Call Rehydrate to settle it.
func New(backend Backend, tokens storage.TokenStore, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
		state:   Session{IsLoading: true},
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Session returns a snapshot of the current state.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the identity derived from the current state.
func (s *Store) Identity() Identity {
	return s.Session().Identity()
}

// Rehydrate restores the session from the persisted token and validates it
// against the profile endpoint. It never fails: a token the server rejects
// is purged, any other failure leaves the session logged out with the token
// kept for the next start.
func (s *Store) Rehydrate(ctx context.Context) {
	s.setLoading(true)

	token, err := s.tokens.Load()
	if err != nil {
		s.logger.Warn("session: load token failed", slog.String("error", err.Error()))
		s.set(Session{})
		return
	}
	if token == "" {
		s.set(Session{})
		return
	}

	log := s.logger.With(slog.String("token", checksum.Fingerprint(token)))

	if expired(token, s.now()) {
		log.Info("session: persisted token expired, purging",
			slog.String("error", apperr.StaleToken("token expired").Error()))
		s.purge(log)
		s.set(Session{})
		return
	}

	profile, err := s.backend.Profile(ctx, token)
	switch {
	case err == nil:
		log.Info("session: rehydrated", slog.String("username", profile.Username))
		s.set(Session{IsLoggedIn: true, Token: token})
	case errors.Is(err, apperr.ErrStaleToken):
		log.Info("session: persisted token rejected, purging", slog.String("error", err.Error()))
		s.purge(log)
		s.set(Session{})
	default:
		log.Warn("session: rehydrate failed, token kept", slog.String("error", err.Error()))
		s.set(Session{})
	}
}

// Sync reconciles the session with a token written by another process.
// It reports whether the persisted token differed from the in-memory one.
func (s *Store) Sync(ctx context.Context) bool {
	token, err := s.tokens.Load()
	if err != nil {
		s.logger.Warn("session: sync load failed", slog.String("error", err.Error()))
		return false
	}
	cur := s.Session()
	if token == cur.Token {
		return false
	}
	if token == "" {
		s.set(Session{})
		return true
	}
	s.Rehydrate(ctx)
	return true
}

// Register creates an account. It never logs in.
func (s *Store) Register(ctx context.Context, username, password string) (models.User, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	user, err := s.backend.Register(ctx, username, password)
	if err != nil {
		s.logger.Info("session: register rejected",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return models.User{}, err
	}
	s.logger.Info("session: registered", slog.String("username", user.Username))
	return user, nil
}

// Login exchanges credentials for a token, persists it and marks the session
// logged in. A persistence failure is logged; the session stays logged in
// for this process.
func (s *Store) Login(ctx context.Context, username, password string) error {
	s.setLoading(true)

	token, err := s.backend.Login(ctx, username, password)
	if err != nil {
		s.setLoading(false)
		s.logger.Info("session: login rejected",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return err
	}

	log := s.logger.With(slog.String("token", checksum.Fingerprint(token)))
	if err := s.tokens.Save(token); err != nil {
		log.Warn("session: persist token failed", slog.String("error", err.Error()))
	}
	s.set(Session{IsLoggedIn: true, Token: token})
	log.Info("session: logged in", slog.String("username", username))
	return nil
}

// Logout deletes the persisted token and resets the session.
func (s *Store) Logout() {
	s.purge(s.logger)
	s.set(Session{})
	s.logger.Info("session: logged out")
}

func (s *Store) purge(log *slog.Logger) {
	if err := s.tokens.Delete(); err != nil {
		log.Warn("session: delete token failed", slog.String("error", err.Error()))
	}
}

func (s *Store) set(st Session) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.state.IsLoading = v
	s.mu.Unlock()
}

// expired reports whether token is a JWT whose exp claim is before now.
// Tokens that are not JWTs, or carry no exp, are left to the server.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
