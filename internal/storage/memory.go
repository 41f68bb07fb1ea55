package storage

import "sync"

// Memory is an in-process TokenStore. It backs tests and ephemeral sessions.
type Memory struct {
	mu    sync.Mutex
	token string
	// Fail, when set, is returned by Save.
	Fail error
}

// NewMemory returns a Memory store seeded with token.
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.token = token
	return nil
}

func (m *Memory) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func (m *Memory) Close() error { return nil }

var (
	_ TokenStore = (*File)(nil)
	_ TokenStore = (*SQLite)(nil)
	_ TokenStore = (*Memory)(nil)
)
