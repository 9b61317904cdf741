package state

import "todo/internal/service"

// Session is the local representation of the authenticated account.
type Session struct {
	ID           string
	DisplayLabel string
}

func sessionFrom(acct *service.Account) *Session {
	if acct == nil {
		return nil
	}
	return &Session{ID: acct.ID, DisplayLabel: acct.Email}
}

// Identity is the auth slice.
type Identity struct {
	// Session is nil when nobody is signed in.
	Session *Session
	Status  Status
	Err     string

	// Initialized becomes true on the first auth-state observation and never goes back.
	Initialized bool
}

// SessionID returns the signed-in account ID, or "".
func (s Identity) SessionID() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.ID
}

func (s Identity) pending() Identity {
	s.Status = StatusLoading
	s.Err = ""
	return s
}

// Observed records a session reported by the auth-state subscription.
func (s Identity) Observed(sess Session) Identity {
	s.Session = &sess
	s.Status = StatusSucceeded
	s.Err = ""
	s.Initialized = true
	return s
}

// ObservedNone records that the auth-state subscription reported no session.
func (s Identity) ObservedNone() Identity {
	s.Session = nil
	s.Status = StatusSucceeded
	s.Err = ""
	s.Initialized = true
	return s
}

func (s Identity) settled(sess *Session, err error) Identity {
	if err != nil {
		s.Status = StatusFailed
		s.Err = errString(err)
		return s
	}
	s.Session = sess
	s.Status = StatusSucceeded
	s.Err = ""
	return s
}

func (s Identity) ended(err error) Identity {
	if err != nil {
		s.Status = StatusFailed
		s.Err = errString(err)
		return s
	}
	s.Session = nil
	s.Status = StatusIdle
	s.Err = ""
	return s
}
