package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/core/telegram/callbacks"
	"github.com/m3rciful/trainingbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/trainingbot/core/telegram/helpers"
	"github.com/m3rciful/trainingbot/core/telegram/keyboard"
	"github.com/m3rciful/trainingbot/core/telegram/middleware"
	"github.com/m3rciful/trainingbot/core/telegram/state"
	"github.com/m3rciful/trainingbot/internal/domain"
	"github.com/m3rciful/trainingbot/internal/session"
	"github.com/m3rciful/trainingbot/internal/storage"

	tele "gopkg.in/telebot.v4"
)

const component = "bot"

// op is one text-driven step of the conversation.
type op func(ctx context.Context, userID int64, text string) (session.Reply, error)

// inputError is a bot-level input problem answered in chat.
type inputError struct {
	code string
	msg  string
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Code() string { return e.code }

var (
	errAnswerYesNo = &inputError{"answer_yes_no", "answer yes or no"}
	errStaleButton = &inputError{"stale_button", "button no longer active"}
)

func (b *Bot) registerCommands() error {
	type named struct {
		name string
		cmd  commands.Command
	}
	cmds := []named{
		{"/start", commands.Command{Handler: b.onHelp, Description: "Welcome and help"}},
		{"/help", commands.Command{Handler: b.onHelp, Description: "Show available commands"}},
		{"/log", commands.Command{Handler: b.onLog, Description: "Log a new training", Aliases: []string{"add_training"}}},
		{"/cancel", commands.Command{Handler: b.onCancel, Description: "Cancel the training being logged"}},
		{"/done", commands.Command{Handler: b.onDone, Description: "Finish the exercise or the training"}},
		{"/repeat", commands.Command{Handler: b.onRepeat, Description: "Repeat the last set"}},
		{"/history", commands.Command{Handler: b.onHistory, Description: "Show recent trainings", Aliases: []string{"view_training"}}},
	}
	if b.adminID != 0 {
		cmds = append(cmds, named{"/sessions", commands.Command{Handler: b.onSessions, Description: "Count open logging sessions", AdminOnly: true, Hidden: true}})
	}
	for _, c := range cmds {
		if err := b.reg.RegisterCommand(c.name, c.cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) registerCallbacks() error {
	stale := b.staleButton
	guarded := []struct {
		key  string
		h    tele.HandlerFunc
		want state.State
	}{
		{cbProgram, b.onProgram, session.StateIdle},
		{cbWorkout, b.onWorkout, session.StateSelectingWorkout},
		{cbFinish, b.onFinish, session.StateSelectingWorkout},
		{cbCompleted, b.onCompleted, session.StateAwaitingWorkoutCompletion},
	}
	for _, g := range guarded {
		if err := b.reg.RegisterCallback(g.key, middleware.State(b.fsm, stale, g.want)(g.h)); err != nil {
			return err
		}
	}
	if err := b.reg.RegisterCallback(cbCancel, b.onCancelButton); err != nil {
		return err
	}
	return b.reg.RegisterCallback(cbHistory, b.onHistoryItem)
}

func (b *Bot) textOps() map[state.State]op {
	return map[state.State]op{
		session.StateAwaitingDate:              b.machine.SubmitDate,
		session.StateAwaitingDuration:          b.machine.SubmitDuration,
		session.StateSelectingWorkout:          b.selectByText,
		session.StateAwaitingWorkoutCompletion: b.completionByText,
		session.StateAwaitingRestTime:          b.machine.SubmitRestTime,
		session.StateAwaitingSets:              b.machine.SubmitSet,
	}
}

func (b *Bot) registerStates() {
	for st, fn := range b.textOps() {
		b.fsm.RegisterHandler(st, b.handleText(fn))
	}
}

func (b *Bot) handleText(fn op) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		r, err := fn(ctx, c.Sender().ID, c.Text())
		return b.send(c, render(r, err), err)
	}
}

// send delivers msg and returns the error the router should log. Input
// problems are answered in chat and not reported as handler failures.
func (b *Bot) send(c tele.Context, msg message, err error) error {
	if msg.text != "" {
		if sendErr := tghelpers.SendMDV2(c, msg.text, msg.markup); sendErr != nil {
			return sendErr
		}
	}
	return handlerErr(err)
}

func handlerErr(err error) error {
	if err == nil {
		return nil
	}
	var saveErr *session.SaveError
	if errors.As(err, &saveErr) {
		return err
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return nil
	}
	return err
}

// selectByText accepts a typed workout name, or "done"/"finish" to save.
func (b *Bot) selectByText(ctx context.Context, userID int64, text string) (session.Reply, error) {
	clean := strings.ToLower(strings.TrimSpace(text))
	switch clean {
	case "done", "finish", "/done":
		return b.machine.FinishTraining(ctx, userID)
	}
	kind := domain.WorkoutKind(strings.Join(strings.Fields(clean), "_"))
	return b.machine.SelectWorkout(ctx, userID, kind)
}

func (b *Bot) completionByText(ctx context.Context, userID int64, text string) (session.Reply, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "✅":
		return b.machine.SubmitCompletion(ctx, userID, true)
	case "no", "n", "❌":
		return b.machine.SubmitCompletion(ctx, userID, false)
	}
	r, err := b.machine.Current(userID)
	if err != nil {
		return r, err
	}
	return r, errAnswerYesNo
}

func (b *Bot) onHelp(c tele.Context) error {
	return b.send(c, b.helpMessage(), nil)
}

func (b *Bot) helpMessage() message {
	var sb strings.Builder
	sb.WriteString(bold("Training log") + "\n")
	sb.WriteString(esc("Log your trainings workout by workout, set by set.") + "\n\n")
	for _, cmd := range b.reg.ListCommands(true) {
		sb.WriteString(esc(cmd.Text+" - "+cmd.Description) + "\n")
	}
	return message{text: strings.TrimRight(sb.String(), "\n")}
}

func (b *Bot) onLog(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	msg, err := b.logMessage(ctx, c.Sender().ID)
	return b.send(c, msg, err)
}

// logMessage starts the only program directly and asks otherwise.
func (b *Bot) logMessage(ctx context.Context, userID int64) (message, error) {
	if b.machine.State(userID) != session.StateIdle {
		r, err := b.machine.Current(userID)
		if err == nil {
			err = session.ErrSessionAlreadyActive
		}
		return render(r, err), err
	}
	names := b.machine.Catalog().ProgramNames()
	switch len(names) {
	case 0:
		return message{text: esc("No training programs are configured yet.")}, nil
	case 1:
		return b.startProgram(ctx, userID, names[0])
	}
	btns := make([]keyboard.InlineBtn, len(names))
	for i, n := range names {
		btns[i] = keyboard.InlineBtn{Text: title(n), Unique: cbProgram, Data: n}
	}
	return message{
		text:   esc("Which program did you train?"),
		markup: keyboard.InlineButtonsNPerRow(btns, 2),
	}, nil
}

func (b *Bot) startProgram(ctx context.Context, userID int64, program string) (message, error) {
	r, err := b.machine.Start(ctx, userID, program)
	msg := render(r, err)
	if err == nil {
		msg.text = esc("Let's add a new ") + bold(program) + esc(" training! 🏋️") + "\n\n" + msg.text
	}
	return msg, err
}

func (b *Bot) onProgram(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_ = tghelpers.ClearMarkup(c)
	msg, err := b.startProgram(ctx, c.Sender().ID, callbacks.CallbackPayload(c))
	return b.send(c, msg, err)
}

func (b *Bot) onWorkout(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_ = tghelpers.ClearMarkup(c)
	kind := domain.WorkoutKind(callbacks.CallbackPayload(c))
	r, err := b.machine.SelectWorkout(ctx, c.Sender().ID, kind)
	return b.send(c, render(r, err), err)
}

func (b *Bot) onFinish(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_ = tghelpers.ClearMarkup(c)
	r, err := b.machine.FinishTraining(ctx, c.Sender().ID)
	return b.send(c, render(r, err), err)
}

func (b *Bot) onCompleted(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	completed, err := callbacks.PayloadBool(c)
	if err != nil {
		return b.staleButton(c)
	}
	_ = tghelpers.ClearMarkup(c)
	r, err := b.machine.SubmitCompletion(ctx, c.Sender().ID, completed)
	return b.send(c, render(r, err), err)
}

func (b *Bot) onCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	r, err := b.machine.Cancel(ctx, c.Sender().ID)
	return b.send(c, render(r, err), err)
}

func (b *Bot) onCancelButton(c tele.Context) error {
	_ = tghelpers.ClearMarkup(c)
	return b.onCancel(c)
}

func (b *Bot) onDone(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	r, err := b.done(ctx, c.Sender().ID)
	return b.send(c, render(r, err), err)
}

// done closes the current exercise, or saves the training while a
// workout is being chosen.
func (b *Bot) done(ctx context.Context, userID int64) (session.Reply, error) {
	switch st := b.machine.State(userID); st {
	case session.StateAwaitingSets:
		return b.machine.SubmitSet(ctx, userID, "done")
	case session.StateAwaitingRestTime:
		return b.machine.SubmitRestTime(ctx, userID, "done")
	case session.StateSelectingWorkout:
		return b.machine.FinishTraining(ctx, userID)
	case session.StateIdle:
		return session.Reply{State: st}, session.ErrNoActiveSession
	default:
		return b.unexpected(userID, "done")
	}
}

func (b *Bot) onRepeat(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	r, err := b.repeat(ctx, c.Sender().ID)
	return b.send(c, render(r, err), err)
}

func (b *Bot) repeat(ctx context.Context, userID int64) (session.Reply, error) {
	switch st := b.machine.State(userID); st {
	case session.StateAwaitingSets:
		return b.machine.SubmitSet(ctx, userID, "repeat")
	case session.StateIdle:
		return session.Reply{State: st}, session.ErrNoActiveSession
	default:
		return b.unexpected(userID, "repeat")
	}
}

func (b *Bot) unexpected(userID int64, opName string) (session.Reply, error) {
	r, err := b.machine.Current(userID)
	if err != nil {
		return r, err
	}
	return r, &session.UnexpectedInputError{State: r.State, Op: opName}
}

func (b *Bot) onHistory(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	msg, err := b.historyMessage(ctx, c.Sender().ID)
	return b.send(c, msg, err)
}

func (b *Bot) historyMessage(ctx context.Context, userID int64) (message, error) {
	ts, err := b.history.Query(ctx, storage.Query{UserID: userID, Limit: b.limit})
	if err != nil {
		logger.Error(ctx, component, "history.list",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return message{text: esc("Could not load your trainings. Please try again later.")}, err
	}
	logger.Debug(ctx, component, "history.list",
		slog.String("status", "ok"),
		slog.Int("count", len(ts)),
		slog.Int("limit", b.limit),
	)
	return renderHistoryList(ts), nil
}

func (b *Bot) onHistoryItem(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	msg, err := b.trainingMessage(ctx, c.Sender().ID, callbacks.CallbackPayload(c))
	if err != nil && msg.text == "" {
		return err
	}
	if sendErr := tghelpers.EditOrSendMDV2(c, msg.text, msg.markup); sendErr != nil {
		return sendErr
	}
	return err
}

// trainingMessage renders one stored training. Trainings of other users
// read as missing.
func (b *Bot) trainingMessage(ctx context.Context, userID int64, id string) (message, error) {
	t, err := b.history.FindByID(ctx, strings.TrimSpace(id))
	if errors.Is(err, storage.ErrNotFound) || (err == nil && t.UserID != userID) {
		return message{text: esc("That training no longer exists.")}, nil
	}
	if err != nil {
		logger.Error(ctx, component, "history.view",
			slog.String("status", "fail"),
			slog.String("training_id", id),
			slog.String("err", err.Error()),
		)
		return message{text: esc("Could not load that training. Please try again later.")}, err
	}
	return message{text: renderTraining(*t)}, nil
}

func (b *Bot) onSessions(c tele.Context) error {
	return b.send(c, message{text: esc(fmt.Sprintf("Open sessions: %d", b.machine.Active()))}, nil)
}

// staleButton answers a button pressed outside the state it was made for.
func (b *Bot) staleButton(c tele.Context) error {
	_ = tghelpers.ClearMarkup(c)
	r, err := b.machine.Current(c.Sender().ID)
	if err != nil {
		return b.send(c, message{text: errorText(errStaleButton)}, nil)
	}
	return b.send(c, render(r, errStaleButton), nil)
}

// UnknownText answers free text outside a session.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return b.send(c, message{text: esc("I didn't get that. Use /log to add a training or /help for all commands.")}, nil)
	}
}

// UnknownDocument answers files outside a session.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return b.send(c, message{text: esc("I can only read text messages.")}, nil)
	}
}

// UnknownCallback answers buttons no handler is registered for.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return b.staleButton
}
