package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/trainingbot/internal/catalog"
	"github.com/m3rciful/trainingbot/internal/domain"
	"github.com/m3rciful/trainingbot/internal/session"
	"github.com/m3rciful/trainingbot/internal/storage"

	tele "gopkg.in/telebot.v4"
)

const testCatalog = `
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

const user int64 = 42

var testNow = time.Date(2025, 10, 8, 18, 0, 0, 0, time.UTC)

type memStore struct {
	mu       sync.Mutex
	byID     map[string]domain.Training
	order    []string
	saveErr  error
	queryErr error
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]domain.Training{}}
}

func (s *memStore) Save(_ context.Context, t *domain.Training) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	id := fmt.Sprintf("t-%d", len(s.order)+1)
	c := t.Clone()
	c.ID = id
	s.byID[id] = c
	s.order = append(s.order, id)
	return id, nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*domain.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (s *memStore) Query(_ context.Context, q storage.Query) ([]domain.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []domain.Training
	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.byID[s.order[i]]
		if t.UserID != q.UserID {
			continue
		}
		out = append(out, t.Clone())
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func newBot(t *testing.T, doc string, opts ...func(*Options)) (*Bot, *memStore) {
	t.Helper()
	cat, err := catalog.Parse([]byte(doc), "yaml")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	store := newMemStore()
	o := Options{
		Machine: session.New(cat, nil, store, session.WithClock(func() time.Time { return testNow })),
		History: store,
	}
	for _, fn := range opts {
		fn(&o)
	}
	b, err := New(o)
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return b, store
}

// say feeds text to the handler of the user's current state.
func say(t *testing.T, b *Bot, text string) (message, error) {
	t.Helper()
	fn, ok := b.textOps()[b.machine.State(user)]
	if !ok {
		t.Fatalf("no text handler in state %s", b.machine.State(user))
	}
	r, err := fn(context.Background(), user, text)
	return render(r, err), err
}

func wantText(t *testing.T, msg message, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(msg.text, p) {
			t.Fatalf("message %q does not contain %q", msg.text, p)
		}
	}
}

func buttons(m *tele.ReplyMarkup) [][]string {
	if m == nil {
		return nil
	}
	out := make([][]string, len(m.InlineKeyboard))
	for i, row := range m.InlineKeyboard {
		for _, btn := range row {
			out[i] = append(out[i], btn.Unique+"|"+btn.Data)
		}
	}
	return out
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without machine")
	}
	if _, err := New(Options{Machine: session.New(nil, nil, nil)}); err == nil {
		t.Fatal("expected error without history")
	}
}

func TestConversation(t *testing.T) {
	ctx := context.Background()
	b, store := newBot(t, testCatalog)

	msg, err := b.logMessage(ctx, user)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	wantText(t, msg, "Let's add a new *calisthenics* training\\! 🏋️", "`YYYY-MM-DD`")
	if got := buttons(msg.markup); len(got) != 1 || got[0][0] != "cancel|cancel" {
		t.Fatalf("date keyboard = %v", got)
	}

	msg, _ = say(t, b, "someday")
	wantText(t, msg, "Invalid date", "Training date?")

	msg, _ = say(t, b, "today")
	if msg.text != "Training duration in minutes?" {
		t.Fatalf("duration prompt = %q", msg.text)
	}

	msg, _ = say(t, b, "30")
	wantText(t, msg, "Let's add the first workout\\.")
	want := [][]string{{"workout|lower", "workout|pull"}, {"workout|rest_day"}, {"cancel|cancel"}}
	if got := buttons(msg.markup); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("workout keyboard = %v", got)
	}

	msg, _ = say(t, b, "Rest Day")
	wantText(t, msg, "no exercises configured")

	msg, _ = say(t, b, "lower")
	if msg.text != "Did you complete *Lower*?" {
		t.Fatalf("completion prompt = %q", msg.text)
	}
	msg, err = say(t, b, "maybe")
	if !errors.Is(err, errAnswerYesNo) {
		t.Fatalf("expected yes/no error, got %v", err)
	}
	wantText(t, msg, "Please answer yes or no\\.", "Did you complete")

	msg, _ = say(t, b, "yes")
	if msg.text != "Rest time in seconds for *Shrimp*? /done skips it\\." {
		t.Fatalf("rest prompt = %q", msg.text)
	}

	msg, _ = say(t, b, "60")
	wantText(t, msg, "Enter sets for *Shrimp* \\(1/2\\)\\.", "`<reps> <weight(kg)>`")

	msg, _ = say(t, b, "8 10")
	if msg.text != "Set 1 logged: `reps=8 weight=10`\\. Next set, /repeat or /done\\." {
		t.Fatalf("set logged = %q", msg.text)
	}

	r, err := b.repeat(ctx, user)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	wantText(t, render(r, nil), "Set 2 \\(repeated\\) logged")

	msg, _ = say(t, b, "abc 10")
	wantText(t, msg, `"abc" is not a valid number\.`, "Sets logged so far: 2\\.")

	msg, _ = say(t, b, "8")
	wantText(t, msg, "Provide 2 values, got 1\\.")

	r, err = b.done(ctx, user)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	wantText(t, render(r, nil), "*Shrimp* done\\.\n", "Enter sets for *Sissy Squat* \\(2/2\\)\\.")

	say(t, b, "12")
	r, err = b.done(ctx, user)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	msg = render(r, nil)
	wantText(t, msg, "*Sissy Squat* done\\.\n*Lower* logged\\.\n", "Add another workout, or finish with /done\\.")
	rows := buttons(msg.markup)
	if last := rows[len(rows)-1]; fmt.Sprint(last) != fmt.Sprint([]string{"finish|", "cancel|cancel"}) {
		t.Fatalf("last row = %v", last)
	}

	r, err = b.done(ctx, user)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	msg = render(r, nil)
	if msg.text != "Great job\\! 💪 Training saved\\.\n2025\\-10\\-08 · 30 min · lower · 3 sets" {
		t.Fatalf("saved = %q", msg.text)
	}
	if b.machine.State(user) != session.StateIdle {
		t.Fatal("session should be closed")
	}

	msg, err = b.historyMessage(ctx, user)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := buttons(msg.markup); len(got) != 1 || got[0][0] != "history|t-1" {
		t.Fatalf("history keyboard = %v", got)
	}
	if label := msg.markup.InlineKeyboard[0][0].Text; label != "2025-10-08 - lower" {
		t.Fatalf("history label = %q", label)
	}

	msg, err = b.trainingMessage(ctx, user, "t-1")
	if err != nil {
		t.Fatalf("training: %v", err)
	}
	wantText(t, msg,
		"*Training on 2025\\-10\\-08*",
		"Duration: 30 minutes",
		"*Lower* ✅",
		"_Shrimp_ · rest 60s",
		"set 2: reps\\=8 weight\\=10",
		"_Sissy Squat_\n",
	)
	if len(store.order) != 1 {
		t.Fatalf("saved %d trainings", len(store.order))
	}
}

func TestLogWhileActiveRepromptsCurrentStep(t *testing.T) {
	ctx := context.Background()
	b, _ := newBot(t, testCatalog)
	if _, err := b.logMessage(ctx, user); err != nil {
		t.Fatalf("log: %v", err)
	}
	msg, err := b.logMessage(ctx, user)
	if !errors.Is(err, session.ErrSessionAlreadyActive) {
		t.Fatalf("expected ErrSessionAlreadyActive, got %v", err)
	}
	wantText(t, msg, "already logging", "Training date?")
}

func TestLogProgramChoice(t *testing.T) {
	ctx := context.Background()
	b, _ := newBot(t, testCatalog+`
  - name: running
    workouts:
      - name: easy_run
        exercises:
          - name: run
            metrics: [time]
`)
	msg, err := b.logMessage(ctx, user)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	want := [][]string{{"program|calisthenics", "program|running"}}
	if got := buttons(msg.markup); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("program keyboard = %v", got)
	}
	if b.machine.State(user) != session.StateIdle {
		t.Fatal("no session before a program is picked")
	}
	msg, err = b.startProgram(ctx, user, "running")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	wantText(t, msg, "*running*", "Training date?")
	if _, err := b.startProgram(ctx, 7, "swimming"); !errors.Is(err, session.ErrUnknownProgram) {
		t.Fatalf("expected ErrUnknownProgram, got %v", err)
	}
}

func TestLogWithoutPrograms(t *testing.T) {
	b, _ := newBot(t, "programs: []\n")
	msg, err := b.logMessage(context.Background(), user)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	wantText(t, msg, "No training programs")
}

func TestDoneAndRepeatOutsideSets(t *testing.T) {
	ctx := context.Background()
	b, _ := newBot(t, testCatalog)

	if _, err := b.done(ctx, user); !errors.Is(err, session.ErrNoActiveSession) {
		t.Fatalf("done idle: %v", err)
	}
	if _, err := b.repeat(ctx, user); !errors.Is(err, session.ErrNoActiveSession) {
		t.Fatalf("repeat idle: %v", err)
	}

	if _, err := b.logMessage(ctx, user); err != nil {
		t.Fatalf("log: %v", err)
	}
	var unexp *session.UnexpectedInputError
	r, err := b.done(ctx, user)
	if !errors.As(err, &unexp) || unexp.Op != "done" {
		t.Fatalf("done in date step: %v", err)
	}
	wantText(t, render(r, err), "That doesn't fit here\\.", "Training date?")

	say(t, b, "today")
	say(t, b, "45")
	r, err = b.done(ctx, user)
	if !errors.Is(err, session.ErrNoWorkoutsYet) {
		t.Fatalf("finish without workouts: %v", err)
	}
	wantText(t, render(r, err), "haven't added any workouts yet")
	if _, err := b.repeat(ctx, user); !errors.As(err, &unexp) {
		t.Fatalf("repeat while selecting: %v", err)
	}

	say(t, b, "pull")
	say(t, b, "no")
	r, err = b.repeat(ctx, user)
	if !errors.Is(err, session.ErrNoSetToRepeat) {
		t.Fatalf("repeat without set: %v", err)
	}
	wantText(t, render(r, err), "No previous set to repeat\\.", "Enter sets for *Pullup*")
}

func TestDoneSkipsExerciseAwaitingRestTime(t *testing.T) {
	ctx := context.Background()
	b, _ := newBot(t, testCatalog)
	if _, err := b.logMessage(ctx, user); err != nil {
		t.Fatalf("log: %v", err)
	}
	say(t, b, "today")
	say(t, b, "45")
	say(t, b, "lower")
	say(t, b, "yes")
	if st := b.machine.State(user); st != session.StateAwaitingRestTime {
		t.Fatalf("state = %s", st)
	}

	r, err := b.done(ctx, user)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	wantText(t, render(r, err), "*Shrimp* skipped, no sets logged\\.", "Enter sets for")
	if st := b.machine.State(user); st != session.StateAwaitingSets {
		t.Fatalf("state after skip = %s", st)
	}
}

func TestTypedFinishSavesAndFailureIsReported(t *testing.T) {
	ctx := context.Background()
	b, store := newBot(t, testCatalog)
	store.saveErr = errors.New("disk full")

	if _, err := b.logMessage(ctx, user); err != nil {
		t.Fatalf("log: %v", err)
	}
	for _, in := range []string{"2025-10-01", "20", "pull", "y", "10", "done"} {
		if _, err := say(t, b, in); err != nil {
			t.Fatalf("%q: %v", in, err)
		}
	}
	msg, err := say(t, b, "finish")
	var saveErr *session.SaveError
	if !errors.As(err, &saveErr) {
		t.Fatalf("expected SaveError, got %v", err)
	}
	wantText(t, msg, "error saving your session")
	if handlerErr(err) == nil {
		t.Fatal("save failures must reach the router")
	}
	if b.machine.State(user) != session.StateIdle {
		t.Fatal("failed save discards the session")
	}
}

func TestTrainingMessageHidesOtherUsers(t *testing.T) {
	ctx := context.Background()
	b, store := newBot(t, testCatalog)
	id, err := store.Save(ctx, &domain.Training{UserID: 7, Date: testNow, DurationMinutes: 10})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, tc := range []struct{ user int64 }{{user}, {7}} {
		msg, err := b.trainingMessage(ctx, tc.user, id)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		hidden := strings.Contains(msg.text, "no longer exists")
		if hidden != (tc.user != 7) {
			t.Fatalf("user %d: %q", tc.user, msg.text)
		}
	}
	msg, err := b.trainingMessage(ctx, user, "missing")
	if err != nil || !strings.Contains(msg.text, "no longer exists") {
		t.Fatalf("missing: %q %v", msg.text, err)
	}
}

func TestHistoryMessage(t *testing.T) {
	ctx := context.Background()
	b, store := newBot(t, testCatalog, func(o *Options) { o.HistoryLimit = 2 })

	msg, err := b.historyMessage(ctx, user)
	if err != nil {
		t.Fatalf("empty history: %v", err)
	}
	wantText(t, msg, "haven't logged any trainings yet")

	for d := 1; d <= 3; d++ {
		tr := &domain.Training{UserID: user, Date: time.Date(2025, 10, d, 0, 0, 0, 0, time.UTC), DurationMinutes: 30,
			Workouts: []domain.Workout{{Kind: "pull", Exercises: []domain.Exercise{}}}}
		if _, err := store.Save(ctx, tr); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	msg, err = b.historyMessage(ctx, user)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	wantText(t, msg, "Your last 2 trainings\\.")
	if got := buttons(msg.markup); fmt.Sprint(got) != "[[history|t-3] [history|t-2]]" {
		t.Fatalf("history keyboard = %v", got)
	}

	store.queryErr = errors.New("db down")
	msg, err = b.historyMessage(ctx, user)
	if err == nil || !strings.Contains(msg.text, "Could not load") {
		t.Fatalf("query failure: %q %v", msg.text, err)
	}
}

func TestRenderTrainingWithoutSets(t *testing.T) {
	got := renderTraining(domain.Training{
		Date:            time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC),
		DurationMinutes: 45,
		Workouts:        []domain.Workout{{Kind: "handstand", Exercises: []domain.Exercise{}}},
	})
	want := "*Training on 2025\\-10\\-08*\nDuration: 45 minutes\n\n*Handstand* ❌\n  no sets logged"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestHelpAndRoutes(t *testing.T) {
	b, _ := newBot(t, testCatalog, func(o *Options) { o.AdminID = 1 })
	msg := b.helpMessage()
	wantText(t, msg, "/log \\- Log a new training", "/history \\- Show recent trainings")
	if strings.Contains(msg.text, "/sessions") {
		t.Fatal("admin command must stay hidden")
	}
	if _, _, ok := b.Registry().LookupCommand("/sessions"); !ok {
		t.Fatal("sessions command should be registered for an admin")
	}

	endpoints := map[any]bool{}
	for _, r := range b.Routes() {
		endpoints[r.Endpoint] = true
	}
	for _, e := range []any{"/log", "/add_training", "/history", "/view_training", "/done", tele.OnCallback, tele.OnText} {
		if !endpoints[e] {
			t.Errorf("missing route %v", e)
		}
	}

	plain, _ := newBot(t, testCatalog)
	if _, _, ok := plain.Registry().LookupCommand("/sessions"); ok {
		t.Fatal("sessions command needs an admin id")
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&session.SaveError{Err: errors.New("x")}, ""},
		{session.ErrInvalidDuration, "positive whole number of minutes"},
		{session.ErrInvalidRestTime, "whole number of seconds"},
		{session.ErrUnknownWorkout, "Unknown workout"},
		{session.ErrNoActiveSession, "Use /log to start"},
		{errStaleButton, "no longer active"},
		{fmt.Errorf("wrapped: %w", session.ErrInvalidDate), "Invalid date"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tt := range tests {
		got := errorText(tt.err)
		if tt.want == "" {
			if got != "" {
				t.Errorf("%v: got %q", tt.err, got)
			}
			continue
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("%v: got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestHandlerErr(t *testing.T) {
	if handlerErr(session.ErrInvalidDate) != nil || handlerErr(errAnswerYesNo) != nil {
		t.Fatal("input errors are answered in chat")
	}
	boom := errors.New("boom")
	if !errors.Is(handlerErr(boom), boom) {
		t.Fatal("unexpected errors reach the router")
	}
}

func TestTitle(t *testing.T) {
	for in, want := range map[string]string{
		"sissy_squat": "Sissy Squat",
		"pullup":      "Pullup",
		"easy run":    "Easy Run",
		"":            "",
	} {
		if got := title(in); got != want {
			t.Errorf("title(%q) = %q, want %q", in, got, want)
		}
	}
}
