package router

import (
	tg "github.com/m3rciful/trainingbot/core/telegram"
	"github.com/m3rciful/trainingbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the conversation manager that receives text while a user is in
// the middle of a flow.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions sets the handlers for text and documents nobody claims.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes plain text to the FSM while the sender has a flow in
// progress, then to a command typed without its menu entry, then to
// UnknownText. Documents always reach UnknownDocument.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if u := c.Sender(); fsm != nil && u != nil && fsm.InProgress(u.ID) {
			return handle(c, "fsm", fsm.ManagerHandler)
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return handle(c, handlerName(key), cmd.Handler)
			}
		}
		return handle(c, "unknown_text", opts.UnknownText)
	}
	doc := func(c tele.Context) error {
		return handle(c, "unexpected_document", opts.UnknownDocument)
	}
	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(doc)},
	}
}
