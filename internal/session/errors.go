package session

import (
	"fmt"

	"github.com/m3rciful/trainingbot/core/telegram/state"
)

// codedError is a sentinel carrying a stable code for handler logs.
type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }

// Code feeds the router err_code field.
func (e *codedError) Code() string { return e.code }

var (
	ErrSessionAlreadyActive error = &codedError{"session_already_active", "a training session is already in progress"}
	ErrNoActiveSession      error = &codedError{"no_active_session", "no training session in progress"}
	ErrUnknownProgram       error = &codedError{"unknown_program", "unknown program"}
	ErrInvalidDate          error = &codedError{"invalid_date", "invalid date"}
	ErrInvalidDuration      error = &codedError{"invalid_duration", "invalid duration"}
	ErrUnknownWorkout       error = &codedError{"unknown_workout", "unknown workout"}
	ErrEmptyWorkout         error = &codedError{"empty_workout", "workout has no exercises"}
	ErrInvalidRestTime      error = &codedError{"invalid_rest_time", "invalid rest time"}
	ErrNoSetToRepeat        error = &codedError{"no_set_to_repeat", "no set to repeat"}
	ErrNoWorkoutsYet        error = &codedError{"no_workouts_yet", "no workouts added yet"}
)

// UnexpectedInputError is returned when an operation does not apply to
// the current state of the session.
type UnexpectedInputError struct {
	State state.State
	Op    string
}

func (e *UnexpectedInputError) Error() string {
	return fmt.Sprintf("unexpected %s in state %s", e.Op, e.State)
}

// Code feeds the router err_code field.
func (e *UnexpectedInputError) Code() string { return "unexpected_input" }

// SaveError reports a failed write of a finished training. The session
// has already been discarded when it is returned.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string { return "save training: " + e.Err.Error() }

func (e *SaveError) Unwrap() error { return e.Err }

// Code feeds the router err_code field.
func (e *SaveError) Code() string { return "save_failed" }
