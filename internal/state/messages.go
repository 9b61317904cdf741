package state

import "todo/internal/task"

// Settlement messages. Remote calls run inside tea.Cmd functions and report back
// with one of these; only Store.Update applies them.

// SessionOp distinguishes the two ways of starting a session.
type SessionOp int

const (
	OpSignIn SessionOp = iota
	OpRegister
)

func (op SessionOp) String() string {
	if op == OpRegister {
		return "auth/register"
	}
	return "auth/login"
}

// SessionObserved carries an auth-state notification. Session is nil when signed out.
type SessionObserved struct {
	Session *Session
}

// SessionSettled reports the outcome of BeginSession or CreateSession.
type SessionSettled struct {
	Op      SessionOp
	Session *Session
	Err     error
}

// SessionEnded reports the outcome of EndSession.
type SessionEnded struct {
	Err error
}

// TasksLoaded reports the outcome of LoadAll.
type TasksLoaded struct {
	OwnerID string
	Items   []task.Task
	Err     error
}

// TaskCreated reports the outcome of CreateTask. OwnerID is the account that issued it.
type TaskCreated struct {
	OwnerID string
	Task    task.Task
	Err     error
}

// TaskUpdated reports the outcome of UpdateTask.
type TaskUpdated struct {
	OwnerID string
	ID      string
	Patch   task.Patch
	Err     error
}

// TaskDeleted reports the outcome of DeleteTask.
type TaskDeleted struct {
	OwnerID string
	ID      string
	Err     error
}
