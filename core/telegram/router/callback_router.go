package router

import (
	"log/slog"

	tg "github.com/m3rciful/trainingbot/core/telegram"
	"github.com/m3rciful/trainingbot/core/telegram/callbacks"
	"github.com/m3rciful/trainingbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions sets the handler for buttons with no registered key.
// When nil, the registry fallback answers the press with a notice.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches every button press by its unique key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	notFound, ackFirst := opts.NotFound, true
	if notFound == nil {
		notFound, ackFirst = reg.CallbackNotFound(), false
	}
	h := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := callbacks.Split(cb)
		name := "callback." + handlerName(key)
		fn, ok := reg.GetCallback(key)
		if ok || ackFirst {
			_ = c.Respond()
		}
		if ok {
			return handle(c, name, fn, slog.String("cb_key", key))
		}
		return handle(c, name, notFound, slog.String("cb_key", key), slog.String("reason", "not_found"))
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
	}
}
