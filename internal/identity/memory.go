package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryProvider is an in-process Provider used by tests and local
// development. It enforces the same login-key uniqueness the real provider
// does, case-insensitively.
type MemoryProvider struct {
	mu    sync.Mutex
	users map[string]Identity
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{users: make(map[string]Identity)}
}

func (m *MemoryProvider) List(_ context.Context, page, pageSize int) ([]Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]Identity, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	// Stable order so paging never skips or repeats entries.
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []Identity{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *MemoryProvider) Create(_ context.Context, email, _ string, claims Claims) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := NormalizeKey(email)
	for _, u := range m.users {
		if NormalizeKey(u.Email) == key {
			return nil, ErrDuplicateLoginKey
		}
	}

	id := Identity{
		ID:        uuid.NewString(),
		Email:     email,
		Claims:    claims,
		CreatedAt: time.Now(),
	}
	m.users[id.ID] = id
	return &id, nil
}

func (m *MemoryProvider) Update(_ context.Context, id string, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Email != nil {
		key := NormalizeKey(*patch.Email)
		for otherID, other := range m.users {
			if otherID != id && NormalizeKey(other.Email) == key {
				return ErrDuplicateLoginKey
			}
		}
		u.Email = *patch.Email
	}
	if patch.Claims != nil {
		u.Claims = *patch.Claims
	}
	// Password is write-only and not stored here.
	m.users[id] = u
	return nil
}

func (m *MemoryProvider) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// Get returns a copy of the stored identity, for test assertions.
func (m *MemoryProvider) Get(id string) (Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

// Count returns the stored population size, for test assertions.
func (m *MemoryProvider) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}
