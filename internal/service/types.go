package service

import (
	"strings"
	"time"
)

// Account is the identity provider's view of a signed-in user.
type Account struct {
	ID    string
	Email string
}

// Credentials are the email/password pair used to register or sign in.
type Credentials struct {
	Email    string
	Password string
}

// Normalize trims the email. Passwords are used verbatim.
func (c Credentials) Normalize() Credentials {
	c.Email = strings.TrimSpace(c.Email)
	return c
}

// Fields is a schemaless document body.
// Values are string, bool, int64, float64, time.Time or nil.
type Fields map[string]any

// Record is a stored document.
type Record struct {
	ID     string
	Fields Fields
}

// Filter selects records whose Field equals Value.
type Filter struct {
	Field string
	Value any
}

// Timestamp normalizes a time value for storage: UTC, millisecond precision.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
