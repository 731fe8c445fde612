package logger

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	coreconfig "github.com/m3rciful/trainingbot/core/config"
)

func TestResolveOptionsDefaults(t *testing.T) {
	o := resolveOptions(nil)
	if o.format != formatJSON || o.level != slog.LevelInfo {
		t.Fatalf("defaults = %+v", o)
	}
	if o.sampleNum != defaultSampleNum || o.sampleDen != defaultSampleDen {
		t.Fatalf("sample = %d/%d", o.sampleNum, o.sampleDen)
	}
	if !reflect.DeepEqual(o.keyOrder, defaultKeyOrder) {
		t.Fatalf("key order = %v", o.keyOrder)
	}

	o = resolveOptions(&coreconfig.Config{})
	if o.profile != "prod" || o.botFile != "" || o.errorsFile != "" {
		t.Fatalf("empty config = %+v", o)
	}
}

func TestResolveOptionsFromConfig(t *testing.T) {
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "WARN",
		KeysOrder:   " ts, level ,,event ",
		DebugSample: "3/10",
		Dir:         "logs",
		BotFile:     "bot.log",
		ErrorsFile:  "errors.log",
		Profile:     "Dev",
	}}
	o := resolveOptions(cfg)
	if o.format != formatKV {
		t.Fatalf("dev profile format = %s", o.format)
	}
	if o.level != slog.LevelWarn {
		t.Fatalf("level = %v", o.level)
	}
	if !reflect.DeepEqual(o.keyOrder, []string{"ts", "level", "event"}) {
		t.Fatalf("key order = %v", o.keyOrder)
	}
	if o.sampleNum != 3 || o.sampleDen != 10 {
		t.Fatalf("sample = %d/%d", o.sampleNum, o.sampleDen)
	}
	if o.botFile != filepath.Join("logs", "bot.log") || o.errorsFile != filepath.Join("logs", "errors.log") {
		t.Fatalf("files = %q %q", o.botFile, o.errorsFile)
	}

	cfg.Logging.Format = "json"
	if o := resolveOptions(cfg); o.format != formatJSON {
		t.Fatalf("explicit json = %s", o.format)
	}
}

func TestResolveOptionsDebugSample(t *testing.T) {
	tests := []struct {
		spec     string
		num, den int
	}{
		{"", defaultSampleNum, defaultSampleDen},
		{"0", 0, 0},
		{"off", 0, 0},
		{"20", 1, 20},
		{"2/5", 2, 5},
		{"garbage", defaultSampleNum, defaultSampleDen},
		{"1/0", defaultSampleNum, defaultSampleDen},
	}
	for _, tt := range tests {
		cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{DebugSample: tt.spec}}
		o := resolveOptions(cfg)
		if o.sampleNum != tt.num || o.sampleDen != tt.den {
			t.Errorf("%q: got %d/%d, want %d/%d", tt.spec, o.sampleNum, o.sampleDen, tt.num, tt.den)
		}
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 2)
	var got []bool
	for i := 0; i < 4; i++ {
		got = append(got, s.Allow())
	}
	if !reflect.DeepEqual(got, []bool{true, false, true, false}) {
		t.Fatalf("1/2 = %v", got)
	}

	s.Set(0, 0)
	for i := 0; i < 3; i++ {
		if !s.Allow() {
			t.Fatal("disabled sampler must allow everything")
		}
	}

	s.Set(5, 3)
	for i := 0; i < 3; i++ {
		if !s.Allow() {
			t.Fatal("numerator above denominator must allow everything")
		}
	}
}

func TestErrorsCopiedToErrWriter(t *testing.T) {
	out, errs := &bytes.Buffer{}, &bytes.Buffer{}
	mw := newAsyncWriter([]io.Writer{out}, 1024)
	ew := newAsyncWriter([]io.Writer{errs}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:     slog.LevelDebug,
		writer:    mw,
		errWriter: ew,
		format:    formatKV,
	})
	l := slog.New(h).With("component", "storage")
	LogEvent(Background(), l, slog.LevelInfo, "training.save", slog.String("status", "ok"))
	LogEvent(Background(), l, slog.LevelError, "training.save", slog.String("status", "fail"))
	for _, w := range []*asyncWriter{mw, ew} {
		if err := w.Flush(); err != nil {
			t.Fatalf("flush: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	if n := strings.Count(out.String(), "\n"); n != 2 {
		t.Fatalf("main lines = %d: %s", n, out)
	}
	if n := strings.Count(errs.String(), "\n"); n != 1 || !strings.Contains(errs.String(), "status=fail") {
		t.Fatalf("errors sink = %q", errs)
	}
}
