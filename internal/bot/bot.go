// Package bot exposes the training log over Telegram.
package bot

import (
	"context"
	"errors"

	coreconfig "github.com/m3rciful/trainingbot/core/config"
	tg "github.com/m3rciful/trainingbot/core/telegram"
	"github.com/m3rciful/trainingbot/core/telegram/router"
	tgsender "github.com/m3rciful/trainingbot/core/telegram/sender"
	"github.com/m3rciful/trainingbot/core/telegram/state"
	"github.com/m3rciful/trainingbot/core/telegram/ui"
	"github.com/m3rciful/trainingbot/internal/config"
	"github.com/m3rciful/trainingbot/internal/domain"
	"github.com/m3rciful/trainingbot/internal/session"
	"github.com/m3rciful/trainingbot/internal/storage"
)

// History is the read side of the training store.
type History interface {
	FindByID(ctx context.Context, id string) (*domain.Training, error)
	Query(ctx context.Context, q storage.Query) ([]domain.Training, error)
}

// Options wires a Bot.
type Options struct {
	Machine      *session.Machine
	History      History
	HistoryLimit int
	// AdminID enables the hidden /sessions command for that user.
	AdminID int64
}

// Bot maps Telegram updates onto the session machine and the history views.
type Bot struct {
	machine *session.Machine
	history History
	limit   int
	adminID int64

	reg *tg.Registry
	fsm *state.Manager
}

var _ ui.FallbackProvider = (*Bot)(nil)

// New builds a Bot and registers its commands, callbacks and FSM handlers.
func New(opts Options) (*Bot, error) {
	if opts.Machine == nil {
		return nil, errors.New("bot: nil session machine")
	}
	if opts.History == nil {
		return nil, errors.New("bot: nil history store")
	}
	b := &Bot{
		machine: opts.Machine,
		history: opts.History,
		limit:   opts.HistoryLimit,
		adminID: opts.AdminID,
		reg:     tg.NewRegistry(),
		fsm:     state.NewManager(opts.Machine),
	}
	if b.limit <= 0 {
		b.limit = config.DefaultHistoryLimit
	}
	if err := b.registerCommands(); err != nil {
		return nil, err
	}
	if err := b.registerCallbacks(); err != nil {
		return nil, err
	}
	b.registerStates()
	return b, nil
}

// Registry returns the command and callback registry.
func (b *Bot) Registry() *tg.Registry { return b.reg }

// Routes builds every endpoint the bot handles.
func (b *Bot) Routes() []tg.Route {
	routes := router.CommandRoutes(b.reg, router.CommandRouteOptions{AdminID: b.adminID})
	routes = append(routes, router.CallbackRoute(b.reg, router.CallbackOptions{NotFound: b.UnknownCallback()}))
	routes = append(routes, router.TextRoutes(b.fsm, b.reg, router.TextOptions{
		UnknownText:     b.UnknownText(),
		UnknownDocument: b.UnknownDocument(),
	})...)
	return routes
}

// RunOptions assembles the Telegram runtime for cfg.
func (b *Bot) RunOptions(cfg *coreconfig.Config) tg.RunOptions {
	return tg.RunOptions{
		Config:            cfg,
		Registry:          b.reg,
		DispatcherOptions: tgsender.Options{Workers: 4, MaxRetries: 2},
		Middlewares:       tg.DefaultMiddlewares(cfg, nil),
		Routes:            b.Routes(),
	}
}
