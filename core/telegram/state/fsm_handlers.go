package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/trainingbot/core/logger"
	tghelpers "github.com/m3rciful/trainingbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Manager dispatches updates to the handler registered for the sender's
// current state.
type Manager struct {
	src Source

	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewManager builds a Manager reading states from src.
func NewManager(src Source) *Manager {
	return &Manager{src: src, handlers: make(map[State]tele.HandlerFunc)}
}

// RegisterHandler associates a state with its handler.
func (m *Manager) RegisterHandler(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

// GetState returns the current state of a user.
func (m *Manager) GetState(userID int64) State {
	if m.src == nil {
		return StateIdle
	}
	st := m.src.State(userID)
	if st == "" {
		return StateIdle
	}
	return st
}

// InProgress reports whether the user currently has an active FSM state.
func (m *Manager) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// ManagerHandler executes the handler function registered for the user's current state, if any.
func (m *Manager) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	current := m.GetState(userID)
	ctx := tghelpers.BuildContext(c)

	m.mu.RLock()
	handler, ok := m.handlers[current]
	m.mu.RUnlock()

	status := "ok"
	if !ok {
		status = "skip"
	}
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", status),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)
	if ok {
		return handler(c)
	}
	return nil
}
