package registry

import (
	"context"
	"sort"
	"sync"
)

// MemoryRegistry is an in-memory Registry for tests and early development.
type MemoryRegistry struct {
	mu    sync.RWMutex
	calls map[string]LiveCall
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{calls: make(map[string]LiveCall)}
}

func (r *MemoryRegistry) Add(ctx context.Context, call LiveCall) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.calls[call.CallID]; ok {
		return ErrDuplicateCall
	}
	r.calls[call.CallID] = call
	return nil
}

func (r *MemoryRegistry) Remove(ctx context.Context, callID string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.calls[callID]; !ok {
		return false, nil
	}
	delete(r.calls, callID)
	return true, nil
}

func (r *MemoryRegistry) Get(ctx context.Context, callID string) (LiveCall, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.calls[callID]
	if !ok {
		return LiveCall{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRegistry) ListByConference(ctx context.Context, conferenceID string, excludeBridge bool) ([]LiveCall, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []LiveCall
	for _, c := range r.calls {
		if c.ConferenceID != conferenceID {
			continue
		}
		if excludeBridge && c.IsBridge {
			continue
		}
		out = append(out, c)
	}
	sortByJoin(out)
	return out, nil
}

func (r *MemoryRegistry) HasActiveBridge(ctx context.Context, conferenceID string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.calls {
		if c.ConferenceID == conferenceID && c.IsBridge {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRegistry) MarkNotified(ctx context.Context, callID string, notified bool) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.calls[callID]
	if !ok {
		return ErrNotFound
	}
	c.NotifiedRoom = notified
	r.calls[callID] = c
	return nil
}

func (r *MemoryRegistry) ListAll(ctx context.Context) ([]LiveCall, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]LiveCall, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConferenceID != out[j].ConferenceID {
			return out[i].ConferenceID < out[j].ConferenceID
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].CallID < out[j].CallID
	})
	return out, nil
}

func sortByJoin(calls []LiveCall) {
	sort.Slice(calls, func(i, j int) bool {
		if !calls[i].JoinedAt.Equal(calls[j].JoinedAt) {
			return calls[i].JoinedAt.Before(calls[j].JoinedAt)
		}
		return calls[i].CallID < calls[j].CallID
	})
}
