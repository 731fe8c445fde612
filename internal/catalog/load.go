package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/internal/domain"
)

type document struct {
	Programs []programDoc `yaml:"programs" toml:"programs"`
}

type programDoc struct {
	Name     string       `yaml:"name" toml:"name"`
	Workouts []workoutDoc `yaml:"workouts" toml:"workouts"`
}

type workoutDoc struct {
	Name      string        `yaml:"name" toml:"name"`
	Exercises []exerciseDoc `yaml:"exercises" toml:"exercises"`
}

type exerciseDoc struct {
	Name      string   `yaml:"name" toml:"name"`
	Metrics   []string `yaml:"metrics" toml:"metrics"`
	TrackRest bool     `yaml:"track_rest" toml:"track_rest"`
}

// Load reads and validates a catalog file. The format follows the file
// extension: .yaml/.yml or .toml.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Parse(data, format)
}

// Parse decodes a catalog document of the given format ("yaml", "yml" or "toml").
func Parse(data []byte, format string) (*Catalog, error) {
	var doc document
	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: parse yaml: %w", ErrInvalidCatalog, err)
		}
	case "toml":
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("%w: parse toml: %w", ErrInvalidCatalog, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %s", ErrInvalidCatalog, undecoded[0])
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return build(doc)
}

// LoadOrEmpty loads the catalog and degrades to an empty one on failure.
// The load error is logged and returned so callers can still report it.
func LoadOrEmpty(ctx context.Context, path string) (*Catalog, error) {
	c, err := Load(path)
	if err != nil {
		logger.Error(ctx, "catalog", "catalog.load",
			slog.String("status", "fail"),
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return Empty(), err
	}
	programs, workouts, exercises := c.Summary()
	logger.Info(ctx, "catalog", "catalog.load",
		slog.String("status", "ok"),
		slog.String("path", path),
		slog.Int("programs", programs),
		slog.Int("workouts", workouts),
		slog.Int("exercises", exercises),
	)
	return c, nil
}

func build(doc document) (*Catalog, error) {
	var errs []error
	c := Empty()
	for pi, pd := range doc.Programs {
		name := strings.TrimSpace(pd.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("programs[%d]: name is required", pi))
			continue
		}
		if _, dup := c.index[name]; dup {
			errs = append(errs, fmt.Errorf("program %q: duplicate name", name))
			continue
		}
		p := &Program{Name: name, index: map[domain.WorkoutKind]int{}}
		for wi, wd := range pd.Workouts {
			w, err := buildWorkout(wd)
			if err != nil {
				errs = append(errs, fmt.Errorf("program %q: workouts[%d]: %w", name, wi, err))
				continue
			}
			if _, dup := p.index[w.Kind]; dup {
				errs = append(errs, fmt.Errorf("program %q: duplicate workout %q", name, w.Kind))
				continue
			}
			p.index[w.Kind] = len(p.workouts)
			p.workouts = append(p.workouts, w)
		}
		c.index[name] = len(c.programs)
		c.programs = append(c.programs, p)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}
	return c, nil
}

func buildWorkout(wd workoutDoc) (Workout, error) {
	kind := strings.TrimSpace(wd.Name)
	if kind == "" {
		return Workout{}, errors.New("name is required")
	}
	w := Workout{Kind: domain.WorkoutKind(kind)}
	seen := map[domain.ExerciseKind]struct{}{}
	for ei, ed := range wd.Exercises {
		name := domain.ExerciseKind(strings.TrimSpace(ed.Name))
		if name == "" {
			return Workout{}, fmt.Errorf("exercises[%d]: name is required", ei)
		}
		if _, dup := seen[name]; dup {
			return Workout{}, fmt.Errorf("duplicate exercise %q", name)
		}
		seen[name] = struct{}{}
		if len(ed.Metrics) == 0 {
			return Workout{}, fmt.Errorf("exercise %q: no metrics", name)
		}
		metrics := make([]domain.Metric, 0, len(ed.Metrics))
		dupMetric := map[domain.Metric]struct{}{}
		for _, raw := range ed.Metrics {
			m, err := domain.ParseMetric(raw)
			if err != nil {
				return Workout{}, fmt.Errorf("exercise %q: %w", name, err)
			}
			if _, dup := dupMetric[m]; dup {
				return Workout{}, fmt.Errorf("exercise %q: duplicate metric %q", name, m)
			}
			dupMetric[m] = struct{}{}
			metrics = append(metrics, m)
		}
		w.Exercises = append(w.Exercises, Exercise{Name: name, Metrics: metrics, TrackRest: ed.TrackRest})
	}
	return w, nil
}
