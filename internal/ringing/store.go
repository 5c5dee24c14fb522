// Package ringing holds pre-authentication call state: the caller line
// identity captured at ring time, keyed by call id, kept only until PIN
// entry succeeds or the call disconnects.
package ringing

import (
	"context"
	"sync"
)

// Store is a keyed ringing-record store. Records for distinct calls never
// interfere; Put for an already-ringing call overwrites.
type Store interface {
	Put(ctx context.Context, callID, callerNumber string) error
	// Get reports the caller number and whether a record exists. A record
	// with an empty caller number is still a record.
	Get(ctx context.Context, callID string) (string, bool, error)
	Delete(ctx context.Context, callID string) error
}

// MemoryStore is an in-memory Store for tests and single-process setups.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]string)}
}

func (s *MemoryStore) Put(ctx context.Context, callID, callerNumber string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[callID] = callerNumber
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, callID string) (string, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.records[callID]
	return n, ok, nil
}

func (s *MemoryStore) Delete(ctx context.Context, callID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, callID)
	return nil
}
