package utils

import "sync"

// KeyedMutex provides one mutex per string key.
//
// The bridge uses it to serialize registry mutations and presence
// reconciliation per conference id: two events for the same conference must
// never interleave their read-then-act sequence, while independent
// conferences proceed in parallel.
//
// Entries are reference-counted and removed once the last holder unlocks, so
// the map does not grow with the number of conferences ever seen.
type KeyedMutex struct {
	mu    sync.Mutex
	lanes map[string]*laneLock
}

type laneLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{lanes: make(map[string]*laneLock)}
}

// Lock acquires the lane for key, blocking while another holder has it.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	l, ok := k.lanes[key]
	if !ok {
		l = &laneLock{}
		k.lanes[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the lane for key. Unlocking a lane that is not held is a
// programming error, same as sync.Mutex.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	l, ok := k.lanes[key]
	if !ok {
		k.mu.Unlock()
		panic("utils: unlock of unheld keyed mutex: " + key)
	}
	l.refs--
	if l.refs == 0 {
		delete(k.lanes, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}

// keyCount reports how many keys are currently tracked; test hook.
func (k *KeyedMutex) keyCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.lanes)
}
