package mockapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errDuplicateUser = errors.New("duplicate key value violates unique constraint \"users_username_key\"")

type ctxKey struct{}

// claims mirrors the backend's token payload.
type claims struct {
	SubjectID int `json:"subject_id"`
	jwt.RegisteredClaims
}

// record appends every request to the request log.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.RequestURI(),
			Authorization: r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		s.logger.Debug("mockapi: request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.RequestURI()))
		next.ServeHTTP(w, r)
	})
}

// identify resolves an optional bearer token to a user id in the request
// context. A missing or invalid token leaves the request anonymous; routes
// that need a user reject it themselves.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			if id, err := s.authenticate(token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// userID returns the authenticated user id, 0 when anonymous.
func userID(r *http.Request) int {
	id, _ := r.Context().Value(ctxKey{}).(int)
	return id
}

func (s *Server) mint(id int) (string, error) {
	if s.issue != nil {
		token := s.issue(id)
		s.mu.Lock()
		s.issued[token] = id
		s.mu.Unlock()
		return token, nil
	}
	now := s.now()
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims{
		SubjectID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}).SignedString(s.secret)
}

func (s *Server) authenticate(token string) (int, error) {
	s.mu.RLock()
	id, ok := s.issued[token]
	s.mu.RUnlock()
	if ok {
		return id, nil
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return 0, err
	}
	if !s.userExists(c.SubjectID) {
		return 0, fmt.Errorf("unknown subject %d", c.SubjectID)
	}
	return c.SubjectID, nil
}

func (s *Server) userExists(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.id == id {
			return true
		}
	}
	return false
}
