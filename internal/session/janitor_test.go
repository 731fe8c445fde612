package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/trainingbot/internal/catalog"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestJanitorSweepExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2025, 10, 8, 8, 0, 0, 0, time.UTC)}
	cat, err := catalog.Parse([]byte(testCatalog), "yaml")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	m := New(cat, nil, &fakeGateway{}, WithClock(clk.Now))
	j := NewJanitor(m, time.Hour, "", clk.Now)

	must(t)(m.Start(ctx, 1, "calisthenics"))
	clk.Advance(40 * time.Minute)
	must(t)(m.Start(ctx, 2, "calisthenics"))
	clk.Advance(30 * time.Minute)

	if n := j.Sweep(ctx); n != 1 {
		t.Fatalf("sweep expired %d sessions, want 1", n)
	}
	if m.State(1) != StateIdle {
		t.Fatal("user 1 idled 70m and should be expired")
	}
	if m.State(2) != StateAwaitingDate {
		t.Fatal("user 2 idled 30m and should survive")
	}

	// Activity refreshes the idle timer.
	clk.Advance(20 * time.Minute)
	must(t)(m.SubmitDate(ctx, 2, "today"))
	clk.Advance(50 * time.Minute)
	if n := j.Sweep(ctx); n != 0 {
		t.Fatalf("sweep expired %d sessions, want 0", n)
	}
	if _, err := m.Start(ctx, 1, "calisthenics"); err != nil {
		t.Fatalf("expired user should start again: %v", err)
	}
}

func TestJanitorDefaultsAndSchedule(t *testing.T) {
	j := NewJanitor(New(nil, nil, nil), 0, "", nil)
	if j.idle != DefaultIdleTimeout || j.spec != DefaultSweepSpec {
		t.Fatalf("defaults = %s %q", j.idle, j.spec)
	}
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	j.Stop()
	j.Stop()

	bad := NewJanitor(New(nil, nil, nil), time.Minute, "not a schedule", nil)
	if err := bad.Start(context.Background()); err == nil {
		t.Fatal("expected invalid spec error")
	}
}
