// Package storage persists the session's bearer token between runs.
package storage

import "fmt"

// Store kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// TokenStore is the persisted slot holding one bearer token.
// Only the session layer writes it.
type TokenStore interface {
	// Load returns the stored token, or "" when none is stored.
	Load() (string, error)
	// Save replaces the stored token.
	Save(token string) error
	// Delete removes the stored token. Deleting an absent token is not an error.
	Delete() error
	// Close releases underlying resources.
	Close() error
}

// Open returns the TokenStore of the given kind located at path.
func Open(kind, path string) (TokenStore, error) {
	switch kind {
	case KindFile, "":
		return NewFile(path)
	case KindSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage: unknown token store kind %q", kind)
	}
}
