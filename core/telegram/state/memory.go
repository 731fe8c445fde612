package state

import (
	"sort"
	"sync"
	"time"
)

type entry[T any] struct {
	value   T
	touched time.Time
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// MemoryStore is an in-process Store. Values are keyed by Telegram user id
// and stamped with the time of their last write.
type MemoryStore[T any] struct {
	now func() time.Time

	mu       sync.RWMutex
	sessions map[int64]entry[T]

	locksMu sync.Mutex
	locks   map[int64]*userLock
}

// NewMemoryStore constructs an in-memory store. A nil clock means time.Now.
func NewMemoryStore[T any](now func() time.Time) *MemoryStore[T] {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore[T]{
		now:      now,
		sessions: make(map[int64]entry[T]),
		locks:    make(map[int64]*userLock),
	}
}

// Create stores v unless the user already has a value.
func (m *MemoryStore[T]) Create(userID int64, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[userID]; ok {
		return ErrExists
	}
	m.sessions[userID] = entry[T]{value: v, touched: m.now()}
	return nil
}

// Get returns the value stored for a user.
func (m *MemoryStore[T]) Get(userID int64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[userID]
	return e.value, ok
}

// Put stores v and refreshes its activity timestamp.
func (m *MemoryStore[T]) Put(userID int64, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = entry[T]{value: v, touched: m.now()}
}

// Delete removes the value of a user and reports whether one existed.
func (m *MemoryStore[T]) Delete(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	return ok
}

// Expire removes values last written before the given instant and returns
// the affected user ids in ascending order. Each candidate is removed under
// its user lock, so an update in progress finishes first and a value it
// refreshes survives.
func (m *MemoryStore[T]) Expire(before time.Time) []int64 {
	m.mu.RLock()
	var stale []int64
	for id, e := range m.sessions {
		if e.touched.Before(before) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })

	expired := stale[:0]
	for _, id := range stale {
		if m.expireOne(id, before) {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	return expired
}

func (m *MemoryStore[T]) expireOne(userID int64, before time.Time) bool {
	unlock := m.Lock(userID)
	defer unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[userID]
	if !ok || !e.touched.Before(before) {
		return false
	}
	delete(m.sessions, userID)
	return true
}

// Len returns the number of stored values.
func (m *MemoryStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Lock blocks until the caller holds the user's lock. The returned func
// releases it and must be called exactly once.
func (m *MemoryStore[T]) Lock(userID int64) func() {
	m.locksMu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, userID)
		}
		m.locksMu.Unlock()
	}
}
