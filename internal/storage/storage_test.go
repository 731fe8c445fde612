package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/m3rciful/trainingbot/core/database"
	"github.com/m3rciful/trainingbot/internal/domain"
	"github.com/m3rciful/trainingbot/migrations"
)

func newSQLite(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()
	cfg := database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "trainings.db")}
	if err := database.RunMigrations(ctx, cfg, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Applying twice is a no-op.
	if err := database.RunMigrations(ctx, cfg, migrations.FS); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gw, err := New(cfg, db)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s := gw.(*SQLite)
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustSet(t *testing.T, metrics []domain.Metric, values ...float64) domain.Set {
	t.Helper()
	s, err := domain.NewSet(metrics, values)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	return s
}

func training(t *testing.T, user int64, date time.Time, kinds ...domain.WorkoutKind) *domain.Training {
	t.Helper()
	rest := 60
	tr := &domain.Training{UserID: user, Program: "calisthenics", Date: date, DurationMinutes: 45}
	for _, k := range kinds {
		tr.Workouts = append(tr.Workouts, domain.Workout{
			Kind:      k,
			Completed: true,
			Exercises: []domain.Exercise{{
				Kind:            "shrimp",
				RestTimeSeconds: &rest,
				Sets: []domain.Set{
					mustSet(t, []domain.Metric{domain.MetricReps, domain.MetricWeight}, 8, 10),
					mustSet(t, []domain.Metric{domain.MetricReps, domain.MetricWeight}, 8, 12.5),
				},
			}},
		})
	}
	return tr
}

func TestSaveAndFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	in := training(t, 7, day(2025, 10, 8), "lower", "pull")
	in.Workouts = append(in.Workouts, domain.Workout{Kind: "handstand", Exercises: []domain.Exercise{}})
	id, err := s.Save(ctx, in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := in.Clone()
	want.ID = id
	if got.ID != want.ID || got.UserID != want.UserID || got.Program != want.Program ||
		!got.Date.Equal(want.Date) || got.DurationMinutes != want.DurationMinutes {
		t.Fatalf("header mismatch: got %+v want %+v", got, want)
	}
	if got.Date.Location() != time.UTC {
		t.Fatalf("date location = %s", got.Date.Location())
	}
	if !reflect.DeepEqual(got.WorkoutKinds(), want.WorkoutKinds()) {
		t.Fatalf("kinds = %v", got.WorkoutKinds())
	}
	ex := got.Workouts[0].Exercises[0]
	if *ex.RestTimeSeconds != 60 || len(ex.Sets) != 2 || !ex.Sets[1].Equal(want.Workouts[0].Exercises[0].Sets[1]) {
		t.Fatalf("exercise = %+v", ex)
	}
	if got.Workouts[2].Exercises == nil || len(got.Workouts[2].Exercises) != 0 {
		t.Fatalf("empty workout should read back with an empty exercise list")
	}
}

func TestSaveRejectsInvalidTraining(t *testing.T) {
	s := newSQLite(t)
	bad := training(t, 7, day(2025, 10, 8))
	if _, err := s.Save(context.Background(), bad); !errors.Is(err, domain.ErrInvalidTraining) {
		t.Fatalf("expected ErrInvalidTraining, got %v", err)
	}
	if _, err := s.Save(context.Background(), nil); !errors.Is(err, domain.ErrInvalidTraining) {
		t.Fatalf("nil training: %v", err)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	s := newSQLite(t)
	if _, err := s.FindByID(context.Background(), "2b1f9a1c-0000-4000-8000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)
	id, err := s.Save(ctx, training(t, 7, day(2025, 10, 8), "lower"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	upd := training(t, 7, day(2025, 10, 9), "push")
	upd.ID = id
	upd.DurationMinutes = 30
	if err := s.Replace(ctx, upd); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.DurationMinutes != 30 || !got.Date.Equal(day(2025, 10, 9)) || got.Workouts[0].Kind != "push" {
		t.Fatalf("replace not applied: %+v", got)
	}

	upd.ID = "missing"
	if err := s.Replace(ctx, upd); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	save := func(tr *domain.Training) string {
		id, err := s.Save(ctx, tr)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		return id
	}
	a := save(training(t, 7, day(2025, 10, 1), "lower"))
	b := save(training(t, 7, day(2025, 10, 3), "pull", "push"))
	c := save(training(t, 7, day(2025, 10, 3), "lower"))
	d := save(training(t, 7, day(2025, 10, 5), "handstand"))
	save(training(t, 8, day(2025, 10, 4), "lower"))

	ids := func(ts []domain.Training) []string {
		out := make([]string, len(ts))
		for i, tr := range ts {
			out[i] = tr.ID
		}
		return out
	}

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{name: "all newest first", q: Query{UserID: 7}, want: []string{d, c, b, a}},
		{name: "limit", q: Query{UserID: 7, Limit: 2}, want: []string{d, c}},
		{name: "half open range", q: Query{UserID: 7, From: day(2025, 10, 1), To: day(2025, 10, 5)}, want: []string{c, b, a}},
		{name: "from only", q: Query{UserID: 7, From: day(2025, 10, 3)}, want: []string{d, c, b}},
		{name: "include", q: Query{UserID: 7, Filter: Filter{Include: []domain.WorkoutKind{"lower"}}}, want: []string{c, a}},
		{name: "include any", q: Query{UserID: 7, Filter: Filter{Include: []domain.WorkoutKind{"push", "handstand"}}}, want: []string{d, b}},
		{name: "exclude", q: Query{UserID: 7, Filter: Filter{Exclude: []domain.WorkoutKind{"lower", "pull"}}}, want: []string{d, b}},
		{name: "filter with limit", q: Query{UserID: 7, Filter: Filter{Include: []domain.WorkoutKind{"lower"}}, Limit: 1}, want: []string{c}},
		{name: "other user", q: Query{UserID: 9}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.q)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Fatalf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestQueryValidation(t *testing.T) {
	s := newSQLite(t)
	bad := []Query{
		{},
		{UserID: 7, Filter: Filter{Include: []domain.WorkoutKind{"a"}, Exclude: []domain.WorkoutKind{"b"}}},
		{UserID: 7, From: day(2025, 10, 5), To: day(2025, 10, 5)},
	}
	for _, q := range bad {
		if _, err := s.Query(context.Background(), q); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("query %+v: expected ErrInvalidQuery, got %v", q, err)
		}
	}
}

func TestFilterMatch(t *testing.T) {
	kinds := []domain.WorkoutKind{"lower", "pull"}
	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"zero", Filter{}, true},
		{"include hit", Filter{Include: []domain.WorkoutKind{"pull"}}, true},
		{"include miss", Filter{Include: []domain.WorkoutKind{"push"}}, false},
		{"exclude one outside", Filter{Exclude: []domain.WorkoutKind{"lower"}}, true},
		{"exclude all covered", Filter{Exclude: []domain.WorkoutKind{"lower", "pull"}}, false},
	}
	for _, tt := range tests {
		if got := tt.f.Match(kinds); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
	if (Filter{Exclude: []domain.WorkoutKind{"x"}}).Match(nil) {
		t.Error("exclude should not match a training without workouts")
	}
}
