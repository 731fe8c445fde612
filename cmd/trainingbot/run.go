package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/m3rciful/trainingbot/core/bootstrap"
	corecmd "github.com/m3rciful/trainingbot/core/cmd"
	"github.com/m3rciful/trainingbot/core/logger"
	coretelegram "github.com/m3rciful/trainingbot/core/telegram"
	"github.com/m3rciful/trainingbot/internal/api"
	"github.com/m3rciful/trainingbot/internal/bot"
	"github.com/m3rciful/trainingbot/internal/catalog"
	"github.com/m3rciful/trainingbot/internal/config"
	"github.com/m3rciful/trainingbot/internal/session"
	"github.com/m3rciful/trainingbot/internal/storage"
	"github.com/m3rciful/trainingbot/migrations"
)

const defaultConfigPath = "configs/config.yaml"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Telegram bot (default)",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	return corecmd.Run(corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(ctx context.Context, c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := c.(*config.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", c)
			}
			return newApp(ctx, cfg)
		},
	})
}

// app owns everything the bot needs between OnStart and OnStop.
type app struct {
	cfg     *config.Config
	db      *sqlx.DB
	bot     *bot.Bot
	janitor *session.Janitor
	api     *api.Server

	stopAPI context.CancelFunc
	apiDone sync.WaitGroup
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}

	// A broken catalog leaves the bot running with no programs.
	cat, _ := catalog.LoadOrEmpty(ctx, cfg.Catalog.Path)

	store, err := storage.New(cfg.Database, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	machine := session.New(cat, nil, store)

	b, err := bot.New(bot.Options{
		Machine:      machine,
		History:      store,
		HistoryLimit: cfg.Reporting.HistoryLimit,
		AdminID:      cfg.Telegram.AdminID,
	})
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		db:      res.DB,
		bot:     b,
		janitor: session.NewJanitor(machine, cfg.Session.IdleTimeout, cfg.Session.SweepEvery, nil),
	}
	if cfg.API.Listen != "" {
		a.api = api.New(store)
	}
	return a, nil
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	opts := a.bot.RunOptions(a.cfg.CoreConfig())
	opts.OnStart = a.start
	opts.OnStop = a.stop
	return opts, nil
}

func (a *app) start(ctx context.Context, _ coretelegram.Runtime) error {
	if err := a.janitor.Start(ctx); err != nil {
		return err
	}
	if a.api == nil {
		return nil
	}
	apiCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopAPI = cancel
	a.apiDone.Add(1)
	go func() {
		defer a.apiDone.Done()
		if err := api.Serve(apiCtx, a.cfg.API.Listen, a.api); err != nil {
			logger.Error(apiCtx, "app", "api.serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

func (a *app) stop(context.Context, coretelegram.Runtime) error {
	a.janitor.Stop()
	if a.stopAPI != nil {
		a.stopAPI()
		a.apiDone.Wait()
	}
	return a.db.Close()
}
