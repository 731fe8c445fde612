package bot

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m3rciful/trainingbot/core/telegram/format"
	"github.com/m3rciful/trainingbot/core/telegram/keyboard"
	"github.com/m3rciful/trainingbot/internal/domain"
	"github.com/m3rciful/trainingbot/internal/parser"
	"github.com/m3rciful/trainingbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// Callback keys.
const (
	cbProgram   = "program"
	cbWorkout   = "workout"
	cbFinish    = "finish"
	cbCompleted = "completed"
	cbCancel    = "cancel"
	cbHistory   = "history"
)

const dateLayout = "2006-01-02"

// message is one MarkdownV2 reply with its optional keyboard.
type message struct {
	text   string
	markup *tele.ReplyMarkup
}

var esc = format.MDV2

func bold(s string) string { return "*" + esc(s) + "*" }

func italic(s string) string { return "_" + esc(s) + "_" }

func code(s string) string {
	out, _ := format.EscapeMarkdown(s, format.MarkdownV2, "code")
	return "`" + out + "`"
}

// title turns "sissy_squat" into "Sissy Squat".
func title(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		r, n := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[n:]
	}
	return strings.Join(words, " ")
}

func joinKinds(kinds []domain.WorkoutKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// render turns a machine reply and its error into the single message sent
// for the update. The error line comes first, followed by the re-prompt.
func render(r session.Reply, err error) message {
	msg := renderReply(r)
	if line := errorText(err); line != "" {
		if msg.text == "" {
			msg.text = line
		} else {
			msg.text = line + "\n\n" + msg.text
		}
	}
	return msg
}

func renderReply(r session.Reply) message {
	switch r.Prompt {
	case session.PromptDate:
		return message{
			text: esc("Training date? Send ") + code("YYYY-MM-DD") + esc(", ") +
				code("today") + esc(" or ") + code("yesterday") + esc("."),
			markup: keyboard.InlineButtons([]keyboard.InlineBtn{keyboard.CancelButton(cbCancel)}),
		}
	case session.PromptDuration:
		return message{text: esc("Training duration in minutes?")}
	case session.PromptSelectWorkout:
		return renderSelectWorkout(r)
	case session.PromptCompletion:
		return message{
			text: esc("Did you complete ") + bold(title(string(r.Workout))) + esc("?"),
			markup: keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
				{Text: "✅ Yes", Unique: cbCompleted, Data: "yes"},
				{Text: "❌ No", Unique: cbCompleted, Data: "no"},
			}, 2),
		}
	case session.PromptRestTime:
		return message{text: finishedLine(r) +
			esc("Rest time in seconds for ") + bold(title(string(r.Exercise.Name))) + esc("? /done skips it.")}
	case session.PromptSets:
		return message{text: finishedLine(r) + setsPrompt(r)}
	case session.PromptSetLogged:
		label := fmt.Sprintf("Set %d", r.SetCount)
		if r.Repeated {
			label += " (repeated)"
		}
		return message{text: esc(label+" logged: ") + code(r.Set.String()) + esc(". Next set, /repeat or /done.")}
	case session.PromptSaved:
		text := esc("Great job! 💪 Training saved.")
		if r.Training != nil {
			text += "\n" + esc(summary(*r.Training))
		}
		return message{text: text}
	case session.PromptSaveFailed:
		return message{text: esc("Oh no! There was an error saving your session. It was discarded, please log it again with /log.")}
	case session.PromptCancelled:
		return message{text: esc("Logging cancelled. See you next time!")}
	}
	return message{}
}

func renderSelectWorkout(r session.Reply) message {
	var b strings.Builder
	b.WriteString(finishedLine(r))
	if r.WorkoutClosed {
		b.WriteString(bold(title(string(r.Workout))) + esc(" logged.") + "\n")
	}
	if len(r.WorkoutKinds) == 0 {
		b.WriteString(esc("This program has no workouts. Use /cancel to stop."))
		return message{text: b.String()}
	}
	if r.WorkoutsLogged == 0 {
		b.WriteString(esc("Let's add the first workout."))
	} else {
		b.WriteString(esc("Add another workout, or finish with /done."))
	}

	btns := make([]keyboard.InlineBtn, len(r.WorkoutKinds))
	for i, k := range r.WorkoutKinds {
		btns[i] = keyboard.InlineBtn{Text: title(string(k)), Unique: cbWorkout, Data: string(k)}
	}
	rows := keyboard.Chunk(btns, 2)
	last := []keyboard.InlineBtn{keyboard.CancelButton(cbCancel)}
	if r.WorkoutsLogged > 0 {
		last = append([]keyboard.InlineBtn{{Text: "🏁 Finish", Unique: cbFinish}}, last...)
	}
	rows = append(rows, last)
	return message{text: b.String(), markup: keyboard.InlineButtonsRows(rows...)}
}

// finishedLine confirms the exercise a /done just closed.
func finishedLine(r session.Reply) string {
	if r.Finished == "" {
		return ""
	}
	if r.ExerciseLogged {
		return bold(title(string(r.Finished))) + esc(" done.") + "\n"
	}
	return bold(title(string(r.Finished))) + esc(" skipped, no sets logged.") + "\n"
}

func setsPrompt(r session.Reply) string {
	labels := make([]string, len(r.Exercise.Metrics))
	for i, m := range r.Exercise.Metrics {
		labels[i] = "<" + m.Label() + ">"
	}
	var b strings.Builder
	b.WriteString(esc("Enter sets for ") + bold(title(string(r.Exercise.Name))))
	if r.ExerciseCount > 0 {
		b.WriteString(esc(fmt.Sprintf(" (%d/%d)", r.ExerciseIndex+1, r.ExerciseCount)))
	}
	b.WriteString(esc(".") + "\n")
	b.WriteString(esc("Format: ") + code(strings.Join(labels, " ")) + "\n")
	b.WriteString(esc("Use /repeat for the same set, and /done when finished."))
	if r.SetCount > 0 {
		b.WriteString("\n" + esc(fmt.Sprintf("Sets logged so far: %d.", r.SetCount)))
	}
	return b.String()
}

func summary(t domain.Training) string {
	return fmt.Sprintf("%s · %d min · %s · %d sets",
		t.Date.Format(dateLayout), t.DurationMinutes, joinKinds(t.WorkoutKinds()), t.SetCount())
}

// errorText maps machine errors to an escaped user-facing line. Save
// failures are reported by their prompt instead.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	var (
		saveErr  *session.SaveError
		unexpErr *session.UnexpectedInputError
		countErr *parser.WrongArgumentCountError
		numErr   *parser.InvalidNumberError
	)
	switch {
	case errors.As(err, &saveErr):
		return ""
	case errors.Is(err, errAnswerYesNo):
		return esc("Please answer yes or no.")
	case errors.Is(err, errStaleButton):
		return esc("That button is no longer active.")
	case errors.As(err, &countErr):
		return esc(fmt.Sprintf("Invalid input. Provide %d values, got %d.", countErr.Expected, countErr.Got))
	case errors.As(err, &numErr):
		return esc(fmt.Sprintf("%q is not a valid number.", numErr.Token))
	case errors.Is(err, parser.ErrNoMetrics):
		return esc("This exercise takes no values.")
	case errors.As(err, &unexpErr):
		return esc("That doesn't fit here.")
	case errors.Is(err, session.ErrSessionAlreadyActive):
		return esc("You are already logging a training. Continue below or /cancel.")
	case errors.Is(err, session.ErrNoActiveSession):
		return esc("Nothing in progress. Use /log to start a training.")
	case errors.Is(err, session.ErrUnknownProgram):
		return esc("Unknown program.")
	case errors.Is(err, session.ErrInvalidDate):
		return esc("Invalid date. Use YYYY-MM-DD, today or yesterday.")
	case errors.Is(err, session.ErrInvalidDuration):
		return esc("Please enter a positive whole number of minutes.")
	case errors.Is(err, session.ErrUnknownWorkout):
		return esc("Unknown workout. Pick one from the list.")
	case errors.Is(err, session.ErrEmptyWorkout):
		return esc("That workout has no exercises configured. Please select another.")
	case errors.Is(err, session.ErrInvalidRestTime):
		return esc("Please enter the rest time as a whole number of seconds.")
	case errors.Is(err, session.ErrNoSetToRepeat):
		return esc("No previous set to repeat.")
	case errors.Is(err, session.ErrNoWorkoutsYet):
		return esc("You haven't added any workouts yet. Please add at least one or /cancel.")
	}
	return esc("Something went wrong. Please try again.")
}
