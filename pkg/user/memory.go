package user

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in memory. Intended for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[int64]*User
	nextID int64
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]*User),
		nextID: 1,
	}
}

// GetByID retrieves a user.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	cp := *u
	return &cp, nil
}

// GetByEmail retrieves a user by email.
func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
}

// Create persists a new user and assigns its ID.
func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == 0 {
		u.ID = s.nextID
		s.nextID++
	} else if u.ID >= s.nextID {
		s.nextID = u.ID + 1
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
