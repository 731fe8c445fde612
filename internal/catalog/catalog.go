// Package catalog holds the read-only program definitions the session
// state machine walks: programs, their workouts and the exercises of each
// workout with the metrics to record.
package catalog

import (
	"errors"
	"strings"

	"github.com/m3rciful/trainingbot/internal/domain"
)

var (
	// ErrInvalidCatalog wraps every validation failure of a catalog document.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrUnsupportedFormat is returned for file extensions other than yaml/yml/toml.
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

// Exercise describes one exercise of a workout.
type Exercise struct {
	Name      domain.ExerciseKind
	Metrics   []domain.Metric
	TrackRest bool
}

// Workout is an ordered list of exercises.
type Workout struct {
	Kind      domain.WorkoutKind
	Exercises []Exercise
}

// Program groups workouts under a name, e.g. "calisthenics".
type Program struct {
	Name     string
	workouts []Workout
	index    map[domain.WorkoutKind]int
}

// Catalog is immutable after Load and safe for concurrent readers.
type Catalog struct {
	programs []*Program
	index    map[string]int
}

// Empty returns a catalog without programs.
func Empty() *Catalog {
	return &Catalog{index: map[string]int{}}
}

// ProgramNames lists programs in document order.
func (c *Catalog) ProgramNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.programs))
	for i, p := range c.programs {
		names[i] = p.Name
	}
	return names
}

// Program looks a program up by name.
func (c *Catalog) Program(name string) (*Program, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return c.programs[i], true
}

// Len returns the number of programs.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.programs)
}

// ListWorkoutKinds returns workout kinds in document order.
func (p *Program) ListWorkoutKinds() []domain.WorkoutKind {
	kinds := make([]domain.WorkoutKind, len(p.workouts))
	for i, w := range p.workouts {
		kinds[i] = w.Kind
	}
	return kinds
}

// GetWorkout returns a copy of the workout definition.
func (p *Program) GetWorkout(kind domain.WorkoutKind) (Workout, bool) {
	i, ok := p.index[kind]
	if !ok {
		return Workout{}, false
	}
	return p.workouts[i].clone(), true
}

// GetExercise returns a copy of one exercise definition.
func (p *Program) GetExercise(kind domain.WorkoutKind, name domain.ExerciseKind) (Exercise, bool) {
	i, ok := p.index[kind]
	if !ok {
		return Exercise{}, false
	}
	for _, e := range p.workouts[i].Exercises {
		if e.Name == name {
			return e.clone(), true
		}
	}
	return Exercise{}, false
}

func (w Workout) clone() Workout {
	out := Workout{Kind: w.Kind, Exercises: make([]Exercise, len(w.Exercises))}
	for i, e := range w.Exercises {
		out.Exercises[i] = e.clone()
	}
	return out
}

func (e Exercise) clone() Exercise {
	e.Metrics = append([]domain.Metric(nil), e.Metrics...)
	return e
}

// Summary counts workouts and exercises across all programs.
func (c *Catalog) Summary() (programs, workouts, exercises int) {
	if c == nil {
		return 0, 0, 0
	}
	for _, p := range c.programs {
		workouts += len(p.workouts)
		for _, w := range p.workouts {
			exercises += len(w.Exercises)
		}
	}
	return len(c.programs), workouts, exercises
}
