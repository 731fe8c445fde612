package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/core/telegram/state"
	"github.com/m3rciful/trainingbot/internal/catalog"
	"github.com/m3rciful/trainingbot/internal/domain"
	"github.com/m3rciful/trainingbot/internal/parser"
)

const (
	component      = "session"
	dateLayout     = "2006-01-02"
	defaultMaxSkip = 64
)

// Gateway persists finished trainings.
type Gateway interface {
	Save(ctx context.Context, t *domain.Training) (string, error)
}

// Machine drives the logging conversation. It holds no global state: all
// sessions live in the injected Store.
type Machine struct {
	catalog *catalog.Catalog
	store   Store
	gateway Gateway
	now     func() time.Time
	maxSkip int
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides time.Now, used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMaxSkip bounds how many exercise positions one advance may walk.
func WithMaxSkip(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxSkip = n
		}
	}
}

// New builds a Machine. A nil store selects the in-memory one.
func New(cat *catalog.Catalog, store Store, gw Gateway, opts ...Option) *Machine {
	m := &Machine{
		catalog: cat,
		store:   store,
		gateway: gw,
		now:     time.Now,
		maxSkip: defaultMaxSkip,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.catalog == nil {
		m.catalog = catalog.Empty()
	}
	if m.store == nil {
		m.store = NewMemoryStore(m.now)
	}
	return m
}

// Catalog returns the catalog the machine walks.
func (m *Machine) Catalog() *catalog.Catalog { return m.catalog }

// Start opens a session for the given program.
func (m *Machine) Start(ctx context.Context, userID int64, program string) (Reply, error) {
	unlock := m.store.Lock(userID)
	defer unlock()

	if s, ok := m.store.Get(userID); ok {
		return m.prompt(s), ErrSessionAlreadyActive
	}
	p, ok := m.catalog.Program(program)
	if !ok {
		logger.Warn(ctx, component, "session.start",
			slog.String("status", "fail"),
			slog.String("program", program),
			slog.String("err_code", "UNKNOWN_PROGRAM"),
		)
		return Reply{State: StateIdle}, ErrUnknownProgram
	}

	s := &Session{
		UserID:    userID,
		State:     StateAwaitingDate,
		Program:   p.Name,
		Training:  domain.Training{UserID: userID, Program: p.Name},
		StartedAt: m.now(),
		program:   p,
	}
	if err := m.store.Create(userID, s); err != nil {
		if errors.Is(err, state.ErrExists) {
			return Reply{State: StateIdle}, ErrSessionAlreadyActive
		}
		return Reply{State: StateIdle}, err
	}
	logger.Info(ctx, component, "session.start",
		slog.String("status", "ok"),
		slog.String("program", p.Name),
	)
	return m.prompt(s), nil
}

// SubmitDate accepts YYYY-MM-DD, "today" or "yesterday". Days resolve in UTC.
func (m *Machine) SubmitDate(ctx context.Context, userID int64, text string) (Reply, error) {
	return m.update(ctx, userID, "submit_date", StateAwaitingDate, func(s *Session) (Reply, error) {
		day, err := m.parseDate(text)
		if err != nil {
			return Reply{}, err
		}
		s.Training.Date = day
		s.State = StateAwaitingDuration
		return m.prompt(s), nil
	})
}

func (m *Machine) parseDate(text string) (time.Time, error) {
	clean := strings.ToLower(strings.TrimSpace(text))
	switch clean {
	case "today":
		return domain.Day(m.now()), nil
	case "yesterday":
		return domain.Day(m.now()).AddDate(0, 0, -1), nil
	}
	t, err := time.ParseInLocation(dateLayout, clean, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// SubmitDuration accepts a positive number of minutes.
func (m *Machine) SubmitDuration(ctx context.Context, userID int64, text string) (Reply, error) {
	return m.update(ctx, userID, "submit_duration", StateAwaitingDuration, func(s *Session) (Reply, error) {
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || n <= 0 {
			return Reply{}, ErrInvalidDuration
		}
		s.Training.DurationMinutes = n
		s.State = StateSelectingWorkout
		return m.prompt(s), nil
	})
}

// SelectWorkout opens a workout of the session's program. Workouts without
// exercises are refused and the user stays in workout selection.
func (m *Machine) SelectWorkout(ctx context.Context, userID int64, kind domain.WorkoutKind) (Reply, error) {
	return m.update(ctx, userID, "select_workout", StateSelectingWorkout, func(s *Session) (Reply, error) {
		def, ok := s.program.GetWorkout(kind)
		if !ok {
			return Reply{}, ErrUnknownWorkout
		}
		if len(def.Exercises) == 0 {
			return Reply{}, ErrEmptyWorkout
		}
		s.def = def
		s.workout = &domain.Workout{Kind: def.Kind}
		s.State = StateAwaitingWorkoutCompletion
		return m.prompt(s), nil
	})
}

// SubmitCompletion records whether the workout was completed and enters
// its first exercise.
func (m *Machine) SubmitCompletion(ctx context.Context, userID int64, completed bool) (Reply, error) {
	return m.update(ctx, userID, "submit_completion", StateAwaitingWorkoutCompletion, func(s *Session) (Reply, error) {
		s.workout.Completed = completed
		m.seek(ctx, s, 0)
		return m.prompt(s), nil
	})
}

// SubmitRestTime records the rest between sets in seconds. A finish word
// skips the exercise before any set is logged.
func (m *Machine) SubmitRestTime(ctx context.Context, userID int64, text string) (Reply, error) {
	return m.update(ctx, userID, "submit_rest_time", StateAwaitingRestTime, func(s *Session) (Reply, error) {
		if res, err := parser.Parse(text, nil); err == nil && res.Command == parser.CommandFinishExercise {
			return m.finishExercise(ctx, s), nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || n < 0 {
			return Reply{}, ErrInvalidRestTime
		}
		s.exercise.RestTimeSeconds = &n
		s.State = StateAwaitingSets
		return m.prompt(s), nil
	})
}

// SubmitSet handles one line of set input: metric values, a finish word or
// a repeat word. Parser errors are returned unchanged.
func (m *Machine) SubmitSet(ctx context.Context, userID int64, text string) (Reply, error) {
	return m.update(ctx, userID, "submit_set", StateAwaitingSets, func(s *Session) (Reply, error) {
		def := s.currentDef()
		res, err := parser.Parse(text, def.Metrics)
		if err != nil {
			return Reply{}, err
		}

		switch res.Command {
		case parser.CommandFinishExercise:
			return m.finishExercise(ctx, s), nil
		case parser.CommandRepeatSet:
			if s.lastSet == nil {
				return Reply{}, ErrNoSetToRepeat
			}
			return m.logSet(ctx, s, s.lastSet.Clone(), true), nil
		default:
			return m.logSet(ctx, s, res.Set, false), nil
		}
	})
}

func (m *Machine) logSet(ctx context.Context, s *Session, set domain.Set, repeated bool) Reply {
	s.exercise.Sets = append(s.exercise.Sets, set)
	last := set.Clone()
	s.lastSet = &last

	logger.Debug(ctx, component, "session.set",
		slog.String("status", "ok"),
		slog.String("workout", string(s.workout.Kind)),
		slog.String("exercise", string(s.exercise.Kind)),
		slog.Int("sets", len(s.exercise.Sets)),
		slog.Bool("repeated", repeated),
	)

	r := m.prompt(s)
	r.Prompt = PromptSetLogged
	r.Set = set
	r.Repeated = repeated
	return r
}

func (m *Machine) finishExercise(ctx context.Context, s *Session) Reply {
	finished := s.exercise
	logged := len(finished.Sets) > 0
	if logged {
		s.workout.Exercises = append(s.workout.Exercises, *finished)
	}
	workout := s.workout.Kind
	m.seek(ctx, s, s.exIndex+1)

	r := m.prompt(s)
	r.Finished = finished.Kind
	r.ExerciseLogged = logged
	if s.State == StateSelectingWorkout {
		r.WorkoutClosed = true
		r.Workout = workout
	}
	return r
}

// seek places the cursor on the first exercise at or after from that has
// metrics to log. Running off the end closes the workout. The walk is
// bounded by maxSkip.
func (m *Machine) seek(ctx context.Context, s *Session, from int) {
	s.exercise = nil
	s.lastSet = nil
	for i, steps := from, 0; i < len(s.def.Exercises); i, steps = i+1, steps+1 {
		if steps >= m.maxSkip {
			logger.Warn(ctx, component, "session.seek",
				slog.String("status", "skip"),
				slog.String("workout", string(s.def.Kind)),
				slog.Int("count", steps),
			)
			break
		}
		def := s.def.Exercises[i]
		if len(def.Metrics) == 0 {
			continue
		}
		s.exIndex = i
		s.exercise = &domain.Exercise{Kind: def.Name}
		if def.TrackRest {
			s.State = StateAwaitingRestTime
		} else {
			s.State = StateAwaitingSets
		}
		return
	}
	m.closeWorkout(ctx, s)
}

func (m *Machine) closeWorkout(ctx context.Context, s *Session) {
	w := *s.workout
	if w.Exercises == nil {
		w.Exercises = []domain.Exercise{}
	}
	s.Training.Workouts = append(s.Training.Workouts, w)
	logger.Info(ctx, component, "session.workout",
		slog.String("status", "ok"),
		slog.String("workout", string(w.Kind)),
		slog.Bool("completed", w.Completed),
		slog.Int("exercises", len(w.Exercises)),
	)

	s.workout = nil
	s.def = catalog.Workout{}
	s.exIndex = 0
	s.exercise = nil
	s.lastSet = nil
	s.State = StateSelectingWorkout
}

// FinishTraining saves the training exactly once. The session is
// discarded whether or not the save succeeds.
func (m *Machine) FinishTraining(ctx context.Context, userID int64) (Reply, error) {
	unlock := m.store.Lock(userID)
	defer unlock()

	s, ok := m.store.Get(userID)
	if !ok {
		return Reply{State: StateIdle}, ErrNoActiveSession
	}
	if s.State != StateSelectingWorkout {
		return m.prompt(s), &UnexpectedInputError{State: s.State, Op: "finish_training"}
	}
	if len(s.Training.Workouts) == 0 {
		m.store.Put(userID, s)
		return m.prompt(s), ErrNoWorkoutsYet
	}

	training := s.Training.Clone()
	m.store.Delete(userID)

	reply := Reply{State: StateFinished, Program: s.Program, Training: &training}
	attrs := []slog.Attr{
		slog.String("program", training.Program),
		slog.String("date", training.Date.Format(dateLayout)),
		slog.Int("duration_min", training.DurationMinutes),
		slog.Int("workouts", len(training.Workouts)),
		slog.Int("sets", training.SetCount()),
	}

	var err error
	if m.gateway == nil {
		err = errors.New("no persistence gateway configured")
	} else {
		training.ID, err = m.gateway.Save(ctx, &training)
	}
	if err != nil {
		logger.Error(ctx, component, "session.save", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		reply.Prompt = PromptSaveFailed
		return reply, &SaveError{Err: err}
	}

	logger.Info(ctx, component, "session.save", append(attrs,
		slog.String("status", "ok"),
		slog.String("training_id", training.ID),
	)...)
	reply.Prompt = PromptSaved
	reply.TrainingID = training.ID
	return reply, nil
}

// Cancel discards the session without saving anything.
func (m *Machine) Cancel(ctx context.Context, userID int64) (Reply, error) {
	unlock := m.store.Lock(userID)
	defer unlock()

	s, ok := m.store.Get(userID)
	if !ok || !m.store.Delete(userID) {
		return Reply{State: StateIdle}, ErrNoActiveSession
	}
	logger.Info(ctx, component, "session.cancel",
		slog.String("status", "ok"),
		slog.String("state", string(s.State)),
	)
	return Reply{State: StateIdle, Prompt: PromptCancelled, Program: s.Program}, nil
}

// State returns the user's state, StateIdle without a session.
func (m *Machine) State(userID int64) state.State {
	unlock := m.store.Lock(userID)
	defer unlock()
	if s, ok := m.store.Get(userID); ok {
		return s.State
	}
	return StateIdle
}

// Snapshot returns a copy of the user's session.
func (m *Machine) Snapshot(userID int64) (Snapshot, bool) {
	unlock := m.store.Lock(userID)
	defer unlock()
	s, ok := m.store.Get(userID)
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

// Current re-prompts the user's state.
func (m *Machine) Current(userID int64) (Reply, error) {
	unlock := m.store.Lock(userID)
	defer unlock()
	s, ok := m.store.Get(userID)
	if !ok {
		return Reply{State: StateIdle}, ErrNoActiveSession
	}
	return m.prompt(s), nil
}

// Active returns the number of open sessions.
func (m *Machine) Active() int { return m.store.Len() }

// ExpireIdle discards sessions without activity since before.
func (m *Machine) ExpireIdle(ctx context.Context, before time.Time) []int64 {
	expired := m.store.Expire(before)
	for _, userID := range expired {
		logger.Info(ctx, component, "session.expire",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
		)
	}
	return expired
}

// update runs fn under the user's lock when the session is in want.
// fn must validate before mutating; a failed fn leaves the session as it was.
func (m *Machine) update(ctx context.Context, userID int64, op string, want state.State, fn func(*Session) (Reply, error)) (Reply, error) {
	unlock := m.store.Lock(userID)
	defer unlock()

	s, ok := m.store.Get(userID)
	if !ok {
		return Reply{State: StateIdle}, ErrNoActiveSession
	}
	if s.State != want {
		return m.prompt(s), &UnexpectedInputError{State: s.State, Op: op}
	}

	from := s.State
	reply, err := fn(s)
	m.store.Put(userID, s)
	if err != nil {
		logger.Debug(ctx, component, "session."+op,
			slog.String("status", "fail"),
			slog.String("state", string(s.State)),
			slog.String("err", err.Error()),
		)
		return m.prompt(s), err
	}
	logger.Debug(ctx, component, "session."+op,
		slog.String("status", "ok"),
		slog.String("state", string(s.State)),
		slog.String("from_state", string(from)),
	)
	return reply, nil
}

// prompt describes what the session waits for.
func (m *Machine) prompt(s *Session) Reply {
	r := Reply{State: s.State, Program: s.Program}
	switch s.State {
	case StateAwaitingDate:
		r.Prompt = PromptDate
	case StateAwaitingDuration:
		r.Prompt = PromptDuration
	case StateSelectingWorkout:
		r.Prompt = PromptSelectWorkout
		if s.program != nil {
			r.WorkoutKinds = s.program.ListWorkoutKinds()
		}
		r.WorkoutsLogged = len(s.Training.Workouts)
	case StateAwaitingWorkoutCompletion:
		r.Prompt = PromptCompletion
		r.Workout = s.workout.Kind
	case StateAwaitingRestTime, StateAwaitingSets:
		r.Prompt = PromptSets
		if s.State == StateAwaitingRestTime {
			r.Prompt = PromptRestTime
		}
		def := s.currentDef()
		def.Metrics = append([]domain.Metric(nil), def.Metrics...)
		r.Workout = s.workout.Kind
		r.Exercise = def
		r.ExerciseIndex = s.exIndex
		r.ExerciseCount = len(s.def.Exercises)
		r.SetCount = len(s.exercise.Sets)
	}
	return r
}
