package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/m3rciful/trainingbot/core/logger"
)

const (
	DefaultIdleTimeout = 6 * time.Hour
	DefaultSweepSpec   = "@every 5m"
)

// Expirer discards sessions idle since a given instant.
type Expirer interface {
	ExpireIdle(ctx context.Context, before time.Time) []int64
}

// Janitor periodically drops abandoned sessions.
type Janitor struct {
	target Expirer
	idle   time.Duration
	spec   string
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewJanitor builds a Janitor. Zero values select the defaults.
func NewJanitor(target Expirer, idle time.Duration, spec string, now func() time.Time) *Janitor {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if now == nil {
		now = time.Now
	}
	return &Janitor{target: target, idle: idle, spec: spec, now: now}
}

// Sweep expires sessions idle for longer than the idle timeout.
func (j *Janitor) Sweep(ctx context.Context) int {
	expired := j.target.ExpireIdle(ctx, j.now().Add(-j.idle))
	logger.Debug(ctx, component, "janitor.sweep",
		slog.String("status", "ok"),
		slog.Int("count", len(expired)),
	)
	return len(expired)
}

// Start schedules Sweep on the cron spec.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}
	c := cron.New()
	if err := c.AddFunc(j.spec, func() { j.Sweep(ctx) }); err != nil {
		return fmt.Errorf("janitor: schedule %q: %w", j.spec, err)
	}
	c.Start()
	j.cron = c
	logger.Info(ctx, component, "janitor.start",
		slog.String("status", "ok"),
		slog.String("spec", j.spec),
		slog.Duration("idle", j.idle),
	)
	return nil
}

// Stop halts the schedule.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		j.cron.Stop()
		j.cron = nil
	}
}
