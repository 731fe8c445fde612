package middleware

import (
	"log/slog"

	"github.com/m3rciful/trainingbot/core/logger"
	tghelpers "github.com/m3rciful/trainingbot/core/telegram/helpers"
	"github.com/m3rciful/trainingbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// StateGetter is the minimal interface required from an FSM manager.
type StateGetter interface {
	GetState(userID int64) state.State
}

// State returns a middleware that passes updates through only while the
// user is in one of the expected FSM states. Other updates go to onSkip,
// or are dropped when onSkip is nil.
func State(mgr StateGetter, onSkip tele.HandlerFunc, expected ...state.State) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := c.Sender().ID
			current := mgr.GetState(userID)
			ctx := tghelpers.BuildContext(c)
			for _, want := range expected {
				if current == want {
					logger.Debug(ctx, "tg", "fsm.match",
						slog.String("state", string(current)),
					)
					return next(c)
				}
			}
			logger.Debug(ctx, "tg", "fsm.skip",
				slog.String("state", string(current)),
				slog.Int("expected", len(expected)),
			)
			if onSkip != nil {
				return onSkip(c)
			}
			return nil
		}
	}
}
