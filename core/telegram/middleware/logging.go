package middleware

import (
	"log/slog"

	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/trainingbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const loggedKey = "update_logged"

// LoggerMiddleware attaches the logging context to the update and logs one
// sampled receipt line. The chain may wrap it more than once; only the
// outermost call logs.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if logged, _ := c.Get(loggedKey).(bool); logged {
			return next(c)
		}
		c.Set(loggedKey, true)
		ctx := tghelpers.BuildContext(c)
		if !logger.ShouldSampleDebug() {
			return next(c)
		}

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil {
			attrs = append(attrs,
				slog.String("username", logger.SanitizeLimit(user.Username, 64)),
				slog.String("lang", user.LanguageCode),
			)
		}
		if cb := c.Callback(); cb != nil {
			key, payload := callbacks.Split(cb)
			attrs = append(attrs,
				slog.String("cb_key", logger.SanitizeLimit(key, 128)),
				slog.String("payload", logger.SanitizeLimit(payload, 256)),
			)
		} else if c.Message() != nil {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
		}
		logger.Debug(ctx, "tg", "update.received", attrs...)
		return next(c)
	}
}
