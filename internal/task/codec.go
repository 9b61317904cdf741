package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"todo/internal/service"
)

// Wire field names. They match the documents written by the original web client.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCompleted   = "completed"
	FieldPriority    = "priority"
	FieldOwner       = "userId"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
)

// DecodeError reports a stored document that does not have the task shape.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed task document %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode builds the document body for a new task.
func Encode(d Draft, ownerID string, now time.Time) service.Fields {
	d = d.Normalize()
	now = service.Timestamp(now)
	return service.Fields{
		FieldTitle:       d.Title,
		FieldDescription: d.Description,
		FieldCompleted:   false,
		FieldPriority:    string(d.Priority),
		FieldOwner:       ownerID,
		FieldCreatedAt:   now,
		FieldUpdatedAt:   now,
	}
}

// EncodePatch builds the partial document body for an update.
func EncodePatch(p Patch, now time.Time) service.Fields {
	fields := service.Fields{FieldUpdatedAt: service.Timestamp(now)}
	patched := p.Apply(Task{})
	if p.Title != nil {
		fields[FieldTitle] = patched.Title
	}
	if p.Description != nil {
		fields[FieldDescription] = patched.Description
	}
	if p.Completed != nil {
		fields[FieldCompleted] = patched.Completed
	}
	if p.Priority != nil {
		fields[FieldPriority] = string(patched.Priority)
	}
	return fields
}

// Decode validates a stored record against the task schema and converts it.
// Records that do not match are rejected with a *DecodeError instead of being half-read.
func Decode(rec service.Record) (Task, error) {
	body, err := json.Marshal(rec.Fields)
	if err != nil {
		return Task{}, &DecodeError{ID: rec.ID, Err: err}
	}
	if err := validateDocument(body); err != nil {
		return Task{}, &DecodeError{ID: rec.ID, Err: err}
	}

	var w wireTask
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return Task{}, &DecodeError{ID: rec.ID, Err: err}
	}

	t := Task{
		ID:        rec.ID,
		Title:     w.Title,
		Completed: w.Completed,
		Priority:  w.Priority,
		OwnerID:   w.OwnerID,
		CreatedAt: w.CreatedAt.t,
		UpdatedAt: w.UpdatedAt.t,
	}
	if w.Description != nil {
		t.Description = *w.Description
	}
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	return t, nil
}

// DecodeOwned decodes records and checks that every task belongs to ownerID.
func DecodeOwned(recs []service.Record, ownerID string) ([]Task, error) {
	tasks := make([]Task, 0, len(recs))
	for _, rec := range recs {
		t, err := Decode(rec)
		if err != nil {
			return nil, err
		}
		if t.OwnerID != ownerID {
			return nil, &DecodeError{ID: rec.ID, Err: fmt.Errorf("owned by another account")}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

type wireTask struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Completed   bool     `json:"completed"`
	Priority    Priority `json:"priority"`
	OwnerID     string   `json:"userId"`
	CreatedAt   wireTime `json:"createdAt"`
	UpdatedAt   wireTime `json:"updatedAt"`
}

// wireTime accepts RFC 3339 strings and epoch milliseconds.
type wireTime struct {
	t *time.Time
}

func (w *wireTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		w.t = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		t = t.UTC()
		w.t = &t
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	ms, err := n.Int64()
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	t := time.UnixMilli(ms).UTC()
	w.t = &t
	return nil
}
