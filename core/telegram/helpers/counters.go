package helpers

import tele "gopkg.in/telebot.v4"

const (
	keyReplies  = "replies"
	keyKeyboard = "kb"
)

// ResetCounters zeroes the reply counters of the current update.
func ResetCounters(c tele.Context) {
	c.Set(keyReplies, 0)
	c.Set(keyKeyboard, false)
}

// ReplyCounters reports how many replies were queued for the update and
// whether any of them carried a keyboard.
func ReplyCounters(c tele.Context) (int, bool) {
	n, _ := c.Get(keyReplies).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return n, kb
}

// countReply is called at enqueue time, so the counters are complete
// when the handler returns even though delivery is asynchronous.
func countReply(c tele.Context, keyboard bool) {
	n, _ := c.Get(keyReplies).(int)
	c.Set(keyReplies, n+1)
	if keyboard {
		c.Set(keyKeyboard, true)
	}
}
