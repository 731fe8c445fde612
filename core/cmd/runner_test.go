package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/trainingbot/core/config"
	coretelegram "github.com/m3rciful/trainingbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct{ opts coretelegram.RunOptions }

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, nil }

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("TEST_CONFIG", "")
	if _, err := ResolveConfigPath(Options{ConfigEnvVar: "TEST_CONFIG"}); err == nil {
		t.Fatal("expected error without any path")
	}
	if p, _ := ResolveConfigPath(Options{ConfigEnvVar: "TEST_CONFIG", DefaultConfigPath: "d.yaml"}); p != "d.yaml" {
		t.Fatalf("default = %q", p)
	}
	t.Setenv("TEST_CONFIG", "env.yaml")
	if p, _ := ResolveConfigPath(Options{ConfigEnvVar: "TEST_CONFIG", DefaultConfigPath: "d.yaml"}); p != "env.yaml" {
		t.Fatalf("env = %q", p)
	}
	if p, _ := ResolveConfigPath(Options{ConfigPath: "flag.yaml", ConfigEnvVar: "TEST_CONFIG"}); p != "flag.yaml" {
		t.Fatalf("explicit = %q", p)
	}
}

func TestRunWiresHooks(t *testing.T) {
	var loaded string
	var started, stopped, prevStarted bool
	err := Run(Options{
		ConfigPath: "cfg.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error {
					prevStarted = true
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			started = opts.OnStart(ctx, coretelegram.Runtime{}) == nil
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if loaded != "cfg.yaml" || !started || !stopped || !prevStarted {
		t.Fatalf("loaded=%q started=%v stopped=%v prev=%v", loaded, started, stopped, prevStarted)
	}
}

func TestRunPropagatesBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		ConfigPath:     "cfg.yaml",
		LoadConfig:     func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:      func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, boom },
		ShutdownLogger: func() error { return nil },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
	if err := Run(Options{}); err == nil {
		t.Fatal("expected error without LoadConfig")
	}
}
