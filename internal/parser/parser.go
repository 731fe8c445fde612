// Package parser turns one chat line into set values or a control command.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/m3rciful/trainingbot/internal/domain"
)

// Command is a control word recognised instead of set values.
type Command int

const (
	// CommandNone means the line carried metric values.
	CommandNone Command = iota
	// CommandFinishExercise closes the current exercise.
	CommandFinishExercise
	// CommandRepeatSet duplicates the last logged set.
	CommandRepeatSet
)

func (c Command) String() string {
	switch c {
	case CommandFinishExercise:
		return "finish_exercise"
	case CommandRepeatSet:
		return "repeat_set"
	default:
		return "none"
	}
}

var controlWords = map[string]Command{
	"done":    CommandFinishExercise,
	"d":       CommandFinishExercise,
	"/done":   CommandFinishExercise,
	"repeat":  CommandRepeatSet,
	"r":       CommandRepeatSet,
	"s":       CommandRepeatSet,
	"same":    CommandRepeatSet,
	"/repeat": CommandRepeatSet,
}

// ErrNoMetrics is returned when the caller expects no values at all.
var ErrNoMetrics = errors.New("no metrics expected")

// WrongArgumentCountError reports a token count that differs from the metric count.
type WrongArgumentCountError struct {
	Expected int
	Got      int
}

func (e *WrongArgumentCountError) Error() string {
	return fmt.Sprintf("expected %d values, got %d", e.Expected, e.Got)
}

// Code feeds the router err_code field.
func (e *WrongArgumentCountError) Code() string { return "wrong_argument_count" }

// InvalidNumberError reports a token that is not a finite number.
type InvalidNumberError struct {
	Token string
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("invalid number %q", e.Token)
}

// Code feeds the router err_code field.
func (e *InvalidNumberError) Code() string { return "invalid_number" }

// Result is either a control command or a parsed set.
type Result struct {
	Command Command
	Set     domain.Set
}

// Parse interprets text against the ordered metric list of an exercise.
// Control words are matched first; otherwise the text must hold exactly
// one number per metric, separated by commas and/or whitespace.
func Parse(text string, expected []domain.Metric) (Result, error) {
	clean := strings.ToLower(strings.TrimSpace(text))
	if cmd, ok := controlWords[clean]; ok {
		return Result{Command: cmd}, nil
	}
	if len(expected) == 0 {
		return Result{}, ErrNoMetrics
	}

	tokens := strings.FieldsFunc(clean, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(tokens) != len(expected) {
		return Result{}, &WrongArgumentCountError{Expected: len(expected), Got: len(tokens)}
	}

	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, &InvalidNumberError{Token: tok}
		}
		values[i] = v
	}

	set, err := domain.NewSet(expected, values)
	if err != nil {
		return Result{}, err
	}
	return Result{Command: CommandNone, Set: set}, nil
}
