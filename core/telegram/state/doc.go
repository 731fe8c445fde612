// Package state provides the conversation plumbing shared by bots: a state
// type, a per-user session store with serialised access and idle expiry,
// and a manager that routes free text to the handler of the current state.
package state
