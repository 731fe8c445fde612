package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/trainingbot/core/telegram/format"
	"github.com/m3rciful/trainingbot/core/telegram/keyboard"
	"github.com/m3rciful/trainingbot/internal/domain"
)

// historyLabel is the button text of a training, e.g. "2025-10-08 - lower, pull".
func historyLabel(t domain.Training) string {
	label := t.Date.Format(dateLayout)
	if kinds := t.WorkoutKinds(); len(kinds) > 0 {
		label += " - " + joinKinds(kinds)
	}
	return label
}

func renderHistoryList(ts []domain.Training) message {
	if len(ts) == 0 {
		return message{text: esc("You haven't logged any trainings yet! Use /log to add one.")}
	}
	btns := make([]keyboard.InlineBtn, len(ts))
	for i, t := range ts {
		btns[i] = keyboard.InlineBtn{Text: historyLabel(t), Unique: cbHistory, Data: t.ID}
	}
	noun := "trainings"
	if len(ts) == 1 {
		noun = "training"
	}
	return message{
		text:   esc(fmt.Sprintf("Your last %d %s. Pick one to see the details:", len(ts), noun)),
		markup: keyboard.InlineButtons(btns),
	}
}

func renderTraining(t domain.Training) string {
	var b strings.Builder
	b.WriteString(bold("Training on "+t.Date.Format(dateLayout)) + "\n")
	if t.Program != "" {
		b.WriteString(esc("Program: "+t.Program) + "\n")
	}
	b.WriteString(esc(fmt.Sprintf("Duration: %d minutes", t.DurationMinutes)) + "\n")
	for _, w := range t.Workouts {
		mark := "❌"
		if w.Completed {
			mark = "✅"
		}
		b.WriteString("\n" + bold(title(string(w.Kind))) + " " + mark + "\n")
		if len(w.Exercises) == 0 {
			b.WriteString(esc("  no sets logged") + "\n")
		}
		for _, ex := range w.Exercises {
			line := "  " + italic(title(string(ex.Kind)))
			if rest := format.DerefInt(ex.RestTimeSeconds, -1); rest >= 0 {
				line += esc(fmt.Sprintf(" · rest %ds", rest))
			}
			b.WriteString(line + "\n")
			for i, s := range ex.Sets {
				b.WriteString(esc(fmt.Sprintf("    set %d: %s", i+1, s)) + "\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
