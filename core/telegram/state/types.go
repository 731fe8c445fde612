package state

import (
	"errors"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// ErrExists is returned by Create when the user already has a session.
var ErrExists = errors.New("state: session exists")

// Source reports the conversation state of a user.
type Source interface {
	State(userID int64) State
}

// Store keeps one value per user. Lock serialises the processing of a
// user's updates; different users never share a lock.
type Store[T any] interface {
	Create(userID int64, v T) error
	Get(userID int64) (T, bool)
	Put(userID int64, v T)
	Delete(userID int64) bool
	Expire(before time.Time) []int64
	Lock(userID int64) (unlock func())
	Len() int
}
