// Package storage persists finished trainings.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/trainingbot/core/database"
	"github.com/m3rciful/trainingbot/internal/domain"
)

const component = "storage"

var (
	// ErrNotFound is returned when no training has the requested id.
	ErrNotFound = errors.New("training not found")
	// ErrInvalidQuery is returned for queries that cannot be answered.
	ErrInvalidQuery = errors.New("invalid query")
)

// Gateway is the persistence contract of the bot.
type Gateway interface {
	// Save inserts a new training and returns the generated id.
	Save(ctx context.Context, t *domain.Training) (string, error)
	// Replace overwrites the training with t.ID.
	Replace(ctx context.Context, t *domain.Training) error
	FindByID(ctx context.Context, id string) (*domain.Training, error)
	// Query returns trainings ordered by date, newest first.
	Query(ctx context.Context, q Query) ([]domain.Training, error)
}

// Filter restricts a query by workout kind. At most one side may be set.
type Filter struct {
	// Include matches trainings containing any of the kinds.
	Include []domain.WorkoutKind
	// Exclude matches trainings containing a kind outside the set.
	Exclude []domain.WorkoutKind
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool { return len(f.Include) == 0 && len(f.Exclude) == 0 }

// Match applies the filter to the workout kinds of one training.
func (f Filter) Match(kinds []domain.WorkoutKind) bool {
	switch {
	case len(f.Include) > 0:
		set := kindSet(f.Include)
		for _, k := range kinds {
			if _, ok := set[k]; ok {
				return true
			}
		}
		return false
	case len(f.Exclude) > 0:
		set := kindSet(f.Exclude)
		for _, k := range kinds {
			if _, ok := set[k]; !ok {
				return true
			}
		}
		return false
	}
	return true
}

func kindSet(kinds []domain.WorkoutKind) map[domain.WorkoutKind]struct{} {
	set := make(map[domain.WorkoutKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

func kindStrings(kinds []domain.WorkoutKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// Query selects trainings of one user. From and To form a half-open day
// range; zero values leave that side open. Limit <= 0 means no limit.
type Query struct {
	UserID int64
	From   time.Time
	To     time.Time
	Filter Filter
	Limit  int
}

// Validate checks that the query is well formed.
func (q Query) Validate() error {
	if q.UserID == 0 {
		return fmt.Errorf("%w: user_id is required", ErrInvalidQuery)
	}
	if len(q.Filter.Include) > 0 && len(q.Filter.Exclude) > 0 {
		return fmt.Errorf("%w: include and exclude are mutually exclusive", ErrInvalidQuery)
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return fmt.Errorf("%w: empty date range", ErrInvalidQuery)
	}
	return nil
}

// New returns the gateway for the configured driver.
func New(cfg database.Config, db *sqlx.DB) (Gateway, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case database.DriverSQLite:
		return NewSQLite(db), nil
	default:
		return NewPostgres(db), nil
	}
}

func encodeWorkouts(ws []domain.Workout) ([]byte, error) {
	if ws == nil {
		ws = []domain.Workout{}
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return nil, fmt.Errorf("encode workouts: %w", err)
	}
	return data, nil
}

func decodeWorkouts(data []byte) ([]domain.Workout, error) {
	var ws []domain.Workout
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("decode workouts: %w", err)
	}
	for i := range ws {
		if ws[i].Exercises == nil {
			ws[i].Exercises = []domain.Exercise{}
		}
	}
	return ws, nil
}

func validateForWrite(t *domain.Training) error {
	if t == nil {
		return fmt.Errorf("%w: nil training", domain.ErrInvalidTraining)
	}
	return t.Validate()
}
