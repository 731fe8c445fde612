package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTraining is returned when a training is not fit for persistence.
var ErrInvalidTraining = errors.New("invalid training")

// WorkoutKind names a workout defined by the catalog, e.g. "lower".
type WorkoutKind string

// ExerciseKind names an exercise defined by the catalog, e.g. "backsquat".
type ExerciseKind string

// Exercise is an exercise performed within a workout.
type Exercise struct {
	Kind            ExerciseKind `json:"name"`
	RestTimeSeconds *int         `json:"rest_time_seconds,omitempty"`
	Sets            []Set        `json:"sets"`
}

// Workout is one workout performed within a training session.
type Workout struct {
	Kind      WorkoutKind `json:"name"`
	Completed bool        `json:"completed"`
	Exercises []Exercise  `json:"exercises"`
}

// Training is the unit of persistence: one logged session.
type Training struct {
	ID              string    `json:"id,omitempty"`
	UserID          int64     `json:"user_id"`
	Program         string    `json:"program,omitempty"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Workouts        []Workout `json:"workouts"`
}

// Day normalizes t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// IsDay reports whether t is the instant of a UTC midnight.
func IsDay(t time.Time) bool {
	return !t.IsZero() && t.Equal(Day(t))
}

// WorkoutKinds lists the kinds of the logged workouts in order.
func (t Training) WorkoutKinds() []WorkoutKind {
	kinds := make([]WorkoutKind, 0, len(t.Workouts))
	for _, w := range t.Workouts {
		kinds = append(kinds, w.Kind)
	}
	return kinds
}

// SetCount returns the number of sets across all workouts.
func (t Training) SetCount() int {
	n := 0
	for _, w := range t.Workouts {
		for _, e := range w.Exercises {
			n += len(e.Sets)
		}
	}
	return n
}

// Clone returns a deep copy.
func (t Training) Clone() Training {
	out := t
	out.Workouts = make([]Workout, len(t.Workouts))
	for i, w := range t.Workouts {
		out.Workouts[i] = w.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (w Workout) Clone() Workout {
	out := w
	out.Exercises = make([]Exercise, len(w.Exercises))
	for i, e := range w.Exercises {
		out.Exercises[i] = e.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (e Exercise) Clone() Exercise {
	out := e
	if e.RestTimeSeconds != nil {
		rest := *e.RestTimeSeconds
		out.RestTimeSeconds = &rest
	}
	out.Sets = make([]Set, len(e.Sets))
	for i, s := range e.Sets {
		out.Sets[i] = s.Clone()
	}
	return out
}

// Validate checks the invariants a training must hold before it is stored.
func (t Training) Validate() error {
	var errs []error
	if t.UserID == 0 {
		errs = append(errs, errors.New("user_id is required"))
	}
	if !IsDay(t.Date) {
		errs = append(errs, fmt.Errorf("date %s is not a UTC day", t.Date.Format(time.RFC3339)))
	}
	if t.DurationMinutes <= 0 {
		errs = append(errs, fmt.Errorf("duration_minutes must be > 0, got %d", t.DurationMinutes))
	}
	if len(t.Workouts) == 0 {
		errs = append(errs, errors.New("no workouts"))
	}
	for i, w := range t.Workouts {
		if w.Kind == "" {
			errs = append(errs, fmt.Errorf("workouts[%d]: name is required", i))
		}
		for j, e := range w.Exercises {
			if err := e.validate(); err != nil {
				errs = append(errs, fmt.Errorf("workouts[%d].exercises[%d]: %w", i, j, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTraining, errors.Join(errs...))
	}
	return nil
}

func (e Exercise) validate() error {
	if e.Kind == "" {
		return errors.New("name is required")
	}
	if len(e.Sets) == 0 {
		return errors.New("no sets")
	}
	if e.RestTimeSeconds != nil && *e.RestTimeSeconds < 0 {
		return fmt.Errorf("negative rest time %d", *e.RestTimeSeconds)
	}
	first := e.Sets[0].Metrics()
	for i, s := range e.Sets {
		if !s.Matches(first) {
			return fmt.Errorf("sets[%d] records %v, expected %v", i, s.Metrics(), first)
		}
	}
	return nil
}
