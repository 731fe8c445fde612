package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/trainingbot/core/logger"
	tghelpers "github.com/m3rciful/trainingbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds ("message", "callback") that are never limited.
	Exclude []string
	// OnLimited answers a dropped update; nil drops it silently.
	OnLimited tele.HandlerFunc
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// UpdateKind names the kind of update for rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}

type limiter struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSeen map[int64]time.Time
	pruned   time.Time
}

// allow records an update from user and reports whether it may proceed.
// Entries older than the interval are dropped at most once per interval.
func (l *limiter) allow(user int64) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.pruned) >= l.interval {
		for id, t := range l.lastSeen {
			if now.Sub(t) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.pruned = now
	}
	if last, ok := l.lastSeen[user]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[user] = now
	return true
}

// RateLimitMiddleware drops updates that arrive from the same user within
// opts.Interval of the previous accepted one.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Interval <= 0 {
		return func(next tele.HandlerFunc) tele.HandlerFunc { return next }
	}
	l := &limiter{interval: opts.Interval, now: opts.Now, lastSeen: make(map[int64]time.Time)}
	if l.now == nil {
		l.now = time.Now
	}
	skip := make(map[string]bool, len(opts.Exclude))
	for _, kind := range opts.Exclude {
		skip[kind] = true
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			kind := UpdateKind(c.Update())
			if user == nil || skip[kind] || l.allow(user.ID) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
