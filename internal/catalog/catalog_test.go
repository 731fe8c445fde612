package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/m3rciful/trainingbot/internal/domain"
)

const sampleYAML = `
programs:
  - name: calisthenics
    workouts:
      - name: lower
        exercises:
          - name: shrimp
            metrics: [reps, weight]
            track_rest: true
          - name: sissy_squat
            metrics: [reps]
      - name: pull
        exercises:
          - name: pullup
            metrics: [reps]
      - name: rest_day
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	c, err := Load(writeFile(t, "catalog.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := c.ProgramNames(); !reflect.DeepEqual(got, []string{"calisthenics"}) {
		t.Fatalf("programs = %v", got)
	}
	p, ok := c.Program("calisthenics")
	if !ok {
		t.Fatal("program not found")
	}
	wantKinds := []domain.WorkoutKind{"lower", "pull", "rest_day"}
	if got := p.ListWorkoutKinds(); !reflect.DeepEqual(got, wantKinds) {
		t.Fatalf("kinds = %v, want %v", got, wantKinds)
	}

	w, ok := p.GetWorkout("lower")
	if !ok || len(w.Exercises) != 2 {
		t.Fatalf("lower workout = %+v, %v", w, ok)
	}
	first := w.Exercises[0]
	if first.Name != "shrimp" || !first.TrackRest {
		t.Fatalf("unexpected first exercise %+v", first)
	}
	if !reflect.DeepEqual(first.Metrics, []domain.Metric{domain.MetricReps, domain.MetricWeight}) {
		t.Fatalf("metrics = %v", first.Metrics)
	}

	empty, ok := p.GetWorkout("rest_day")
	if !ok || len(empty.Exercises) != 0 {
		t.Fatalf("empty workout should load, got %+v %v", empty, ok)
	}

	if _, ok := p.GetWorkout("push"); ok {
		t.Fatal("unexpected workout push")
	}
	if e, ok := p.GetExercise("lower", "sissy_squat"); !ok || e.TrackRest {
		t.Fatalf("GetExercise = %+v, %v", e, ok)
	}
	if _, ok := p.GetExercise("pull", "shrimp"); ok {
		t.Fatal("exercise must be looked up within its workout")
	}
}

func TestLookupsReturnCopies(t *testing.T) {
	c, err := Parse([]byte(sampleYAML), "yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p, _ := c.Program("calisthenics")
	w, _ := p.GetWorkout("lower")
	w.Exercises[0].Metrics[0] = domain.MetricTime
	w.Exercises = w.Exercises[:1]

	again, _ := p.GetWorkout("lower")
	if len(again.Exercises) != 2 || again.Exercises[0].Metrics[0] != domain.MetricReps {
		t.Fatalf("catalog mutated through lookup: %+v", again)
	}
}

func TestLoadTOML(t *testing.T) {
	body := `
[[programs]]
name = "home"

  [[programs.workouts]]
  name = "home"

    [[programs.workouts.exercises]]
    name = "towel_roll"
    metrics = ["time", "knee2floor"]
`
	c, err := Load(writeFile(t, "catalog.toml", body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := c.Program("home")
	if !ok {
		t.Fatal("program home missing")
	}
	e, ok := p.GetExercise("home", "towel_roll")
	if !ok {
		t.Fatal("exercise missing")
	}
	if !reflect.DeepEqual(e.Metrics, []domain.Metric{domain.MetricTime, domain.MetricKnee2Floor}) {
		t.Fatalf("metrics = %v", e.Metrics)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"unknown metric": `
programs:
  - name: p
    workouts:
      - name: w
        exercises:
          - name: e
            metrics: [calories]
`,
		"no metrics": `
programs:
  - name: p
    workouts:
      - name: w
        exercises:
          - name: e
`,
		"duplicate workout": `
programs:
  - name: p
    workouts:
      - name: w
      - name: w
`,
		"duplicate exercise": `
programs:
  - name: p
    workouts:
      - name: w
        exercises:
          - name: e
            metrics: [reps]
          - name: e
            metrics: [reps]
`,
		"duplicate program": `
programs:
  - name: p
  - name: p
`,
		"unknown field": `
programs:
  - name: p
    colour: red
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(body), "yaml"); !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	if _, err := Parse([]byte("{}"), "json"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadOrEmpty(t *testing.T) {
	c, err := LoadOrEmpty(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected load error to be reported")
	}
	if c == nil || c.Len() != 0 {
		t.Fatalf("expected empty catalog, got %v", c)
	}
	if _, ok := c.Program("calisthenics"); ok {
		t.Fatal("empty catalog must not resolve programs")
	}
}

func TestBundledCatalogLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "catalog.yaml"))
	if err != nil {
		t.Fatalf("bundled catalog: %v", err)
	}
	p, ok := c.Program("calisthenics")
	if !ok {
		t.Fatal("calisthenics program missing")
	}
	w, ok := p.GetWorkout("lower")
	if !ok || len(w.Exercises) == 0 || !w.Exercises[0].TrackRest {
		t.Fatalf("lower workout = %+v", w)
	}
	if _, err := Load(filepath.Join("..", "..", "configs", "catalog.example.toml")); err != nil {
		t.Fatalf("bundled toml catalog: %v", err)
	}
}
