// Package session implements the conversation that builds a training
// record one chat message at a time.
package session

import (
	"time"

	"github.com/m3rciful/trainingbot/core/telegram/state"
	"github.com/m3rciful/trainingbot/internal/catalog"
	"github.com/m3rciful/trainingbot/internal/domain"
)

const (
	StateIdle                      state.State = state.StateIdle
	StateAwaitingDate              state.State = "awaiting_date"
	StateAwaitingDuration          state.State = "awaiting_duration"
	StateSelectingWorkout          state.State = "selecting_workout"
	StateAwaitingWorkoutCompletion state.State = "awaiting_workout_completion"
	StateAwaitingRestTime          state.State = "awaiting_rest_time"
	StateAwaitingSets              state.State = "awaiting_sets"
	// StateFinished is reported once a session ends; it is never stored.
	StateFinished state.State = "finished"
)

// Session is the in-progress record of one user. It is only touched while
// the user's store lock is held.
type Session struct {
	UserID    int64
	State     state.State
	Program   string
	Training  domain.Training
	StartedAt time.Time

	program *catalog.Program

	// Scratch state of the workout being logged.
	workout  *domain.Workout
	def      catalog.Workout
	exIndex  int
	exercise *domain.Exercise
	lastSet  *domain.Set
}

// Store keeps sessions keyed by user id.
type Store = state.Store[*Session]

// NewMemoryStore returns the in-process session store.
func NewMemoryStore(now func() time.Time) Store {
	return state.NewMemoryStore[*Session](now)
}

func (s *Session) currentDef() catalog.Exercise {
	return s.def.Exercises[s.exIndex]
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	UserID    int64
	State     state.State
	Program   string
	Training  domain.Training
	StartedAt time.Time

	// Workout is the workout being logged, if any.
	Workout       *domain.Workout
	Exercise      *catalog.Exercise
	ExerciseIndex int
	ExerciseCount int
	Sets          int
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		UserID:    s.UserID,
		State:     s.State,
		Program:   s.Program,
		Training:  s.Training.Clone(),
		StartedAt: s.StartedAt,
	}
	if s.workout != nil {
		w := s.workout.Clone()
		snap.Workout = &w
		snap.ExerciseCount = len(s.def.Exercises)
	}
	if s.exercise != nil {
		def := s.currentDef()
		def.Metrics = append([]domain.Metric(nil), def.Metrics...)
		snap.Exercise = &def
		snap.ExerciseIndex = s.exIndex
		snap.Sets = len(s.exercise.Sets)
	}
	return snap
}
