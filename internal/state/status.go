// Package state is the application state container: an identity slice and a task slice,
// updated by a single writer from settlement messages produced by asynchronous remote calls.
package state

// Status is the lifecycle of the most recent request issued for a slice.
//
// idle -> loading -> succeeded | failed, and any terminal state may go back to loading.
// Overlapping requests are not queued: the last settlement wins.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// errString renders a settlement error for a slice's Err field.
func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
