package state

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStoreCreateOnce(t *testing.T) {
	s := NewMemoryStore[string](nil)
	if err := s.Create(1, "a"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(1, "b"); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if v, ok := s.Get(1); !ok || v != "a" {
		t.Fatalf("get = %q, %v", v, ok)
	}
	if !s.Delete(1) || s.Delete(1) {
		t.Fatal("delete should report presence once")
	}
	if err := s.Create(1, "c"); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
}

func TestMemoryStoreExpire(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore[int](clock.Now)

	_ = s.Create(3, 3)
	_ = s.Create(1, 1)
	clock.Advance(time.Hour)
	_ = s.Create(2, 2)
	s.Put(1, 10)

	expired := s.Expire(clock.Now().Add(-30 * time.Minute))
	if !reflect.DeepEqual(expired, []int64{3}) {
		t.Fatalf("expired = %v", expired)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestMemoryStoreExpireWaitsForUserLock(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore[int](clock.Now)
	_ = s.Create(5, 1)
	clock.Advance(time.Hour)
	cutoff := clock.Now().Add(-30 * time.Minute)

	unlock := s.Lock(5)
	if _, ok := s.Get(5); !ok {
		t.Fatal("value missing")
	}

	done := make(chan []int64, 1)
	go func() { done <- s.Expire(cutoff) }()
	select {
	case got := <-done:
		t.Fatalf("expire finished while the user lock was held: %v", got)
	case <-time.After(50 * time.Millisecond):
	}

	s.Put(5, 2)
	unlock()
	select {
	case got := <-done:
		if len(got) != 0 {
			t.Fatalf("expired = %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expire never finished")
	}
	if v, ok := s.Get(5); !ok || v != 2 {
		t.Fatalf("get = %d, %v", v, ok)
	}
}

func TestMemoryStoreLockSerialisesUser(t *testing.T) {
	s := NewMemoryStore[int](nil)
	unlock := s.Lock(7)

	acquired := make(chan struct{})
	go func() {
		u := s.Lock(7)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	other := make(chan struct{})
	go func() {
		u := s.Lock(8)
		close(other)
		u()
	}()
	select {
	case <-other:
	case <-time.After(time.Second):
		t.Fatal("lock of another user blocked")
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

type staticSource map[int64]State

func (s staticSource) State(userID int64) State { return s[userID] }

func TestManagerInProgress(t *testing.T) {
	m := NewManager(staticSource{1: "awaiting_date"})
	if !m.InProgress(1) {
		t.Fatal("user 1 should be in progress")
	}
	if m.InProgress(2) || m.GetState(2) != StateIdle {
		t.Fatal("unknown user should be idle")
	}
}
