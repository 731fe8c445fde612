package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/trainingbot/core/logger"
	tg "github.com/m3rciful/trainingbot/core/telegram"
	"github.com/m3rciful/trainingbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures admin-only commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per command name and alias. Admin-only
// commands are guarded before anything else runs.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	var routes []tg.Route
	cmds := reg.Commands()
	for name, def := range cmds {
		fn := def.Handler
		h := middleware.LoggerMiddleware(middleware.RecoverMiddleware(func(c tele.Context) error {
			return handle(c, handlerName(name), fn)
		}))
		if def.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			routes = append(routes, tg.Route{Endpoint: "/" + strings.TrimPrefix(alias, "/"), Handler: h})
		}
	}

	logger.Info(context.Background(), "tg.wire", "routes.ready",
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
