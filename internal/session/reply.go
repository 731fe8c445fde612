package session

import (
	"github.com/m3rciful/trainingbot/core/telegram/state"
	"github.com/m3rciful/trainingbot/internal/catalog"
	"github.com/m3rciful/trainingbot/internal/domain"
)

// Prompt tells the transport what to ask or confirm next.
type Prompt int

const (
	PromptNone Prompt = iota
	PromptDate
	PromptDuration
	PromptSelectWorkout
	PromptCompletion
	PromptRestTime
	PromptSets
	PromptSetLogged
	PromptSaved
	PromptSaveFailed
	PromptCancelled
)

var promptNames = [...]string{
	PromptNone:          "none",
	PromptDate:          "date",
	PromptDuration:      "duration",
	PromptSelectWorkout: "select_workout",
	PromptCompletion:    "completion",
	PromptRestTime:      "rest_time",
	PromptSets:          "sets",
	PromptSetLogged:     "set_logged",
	PromptSaved:         "saved",
	PromptSaveFailed:    "save_failed",
	PromptCancelled:     "cancelled",
}

func (p Prompt) String() string {
	if int(p) < len(promptNames) {
		return promptNames[p]
	}
	return "unknown"
}

// Reply is returned by every operation, including failed ones where it
// re-prompts the unchanged state.
type Reply struct {
	State  state.State
	Prompt Prompt

	Program string

	// PromptSelectWorkout
	WorkoutKinds   []domain.WorkoutKind
	WorkoutsLogged int
	// WorkoutClosed is set when the last exercise of a workout was finished.
	WorkoutClosed bool

	// Exercise loop
	Workout       domain.WorkoutKind
	Exercise      catalog.Exercise
	ExerciseIndex int
	ExerciseCount int
	SetCount      int
	Set           domain.Set
	Repeated      bool
	// Finished names the exercise a finish command just closed.
	Finished       domain.ExerciseKind
	ExerciseLogged bool

	// PromptSaved, PromptSaveFailed
	TrainingID string
	Training   *domain.Training
}
