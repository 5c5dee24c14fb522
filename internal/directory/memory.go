package directory

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and early development.
//
// NOTE: not intended for production; the Postgres implementation is the
// durable one.
type MemoryStore struct {
	mu          sync.RWMutex
	conferences map[string]Conference
	users       map[int]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conferences: make(map[string]Conference),
		users:       make(map[int]User),
	}
}

func (s *MemoryStore) GetConference(ctx context.Context, conferenceID string) (Conference, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conferences[conferenceID]
	if !ok {
		return Conference{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) CreateConference(ctx context.Context, c Conference) error {
	_ = ctx
	if err := validateConference(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conferences[c.ConferenceID]; ok {
		return ErrConflict
	}
	s.conferences[c.ConferenceID] = c
	return nil
}

func (s *MemoryStore) ListConferences(ctx context.Context) ([]Conference, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Conference, 0, len(s.conferences))
	for _, c := range s.conferences {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConferenceID < out[j].ConferenceID })
	return out, nil
}

func (s *MemoryStore) DeleteConference(ctx context.Context, conferenceID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conferences[conferenceID]; !ok {
		return ErrNotFound
	}
	delete(s.conferences, conferenceID)
	for pin, u := range s.users {
		if u.ConferenceID == conferenceID {
			delete(s.users, pin)
		}
	}
	return nil
}

func (s *MemoryStore) ByPin(ctx context.Context, pin int) (User, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[pin]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u User) error {
	_ = ctx
	if err := validateUser(u); err != nil {
		return err
	}
	u.Role = ClassifyRole(u.Role, u.DisplayName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.PIN]; ok {
		return ErrConflict
	}
	s.users[u.PIN] = u
	return nil
}

func (s *MemoryStore) ListUsers(ctx context.Context, conferenceID string) ([]User, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []User
	for _, u := range s.users {
		if conferenceID != "" && u.ConferenceID != conferenceID {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PIN < out[j].PIN })
	return out, nil
}

func (s *MemoryStore) DeleteUserByPin(ctx context.Context, pin int) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[pin]; !ok {
		return ErrNotFound
	}
	delete(s.users, pin)
	return nil
}

func (s *MemoryStore) UpdateUserExternalID(ctx context.Context, pin int, externalID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[pin]
	if !ok {
		return ErrNotFound
	}
	u.ExternalID = externalID
	s.users[pin] = u
	return nil
}
