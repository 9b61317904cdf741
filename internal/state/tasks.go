package state

import "todo/internal/task"

// Tasks is the task-list slice.
type Tasks struct {
	Items  []task.Task
	Status Status
	Err    string

	// Owner is the account whose tasks Items holds, or "" before the first load.
	Owner string
}

// Find returns the task with the given ID.
func (s Tasks) Find(id string) (task.Task, bool) {
	for _, t := range s.Items {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

func (s Tasks) pending() Tasks {
	s.Status = StatusLoading
	s.Err = ""
	return s
}

func (s Tasks) failed(err error) Tasks {
	s.Status = StatusFailed
	s.Err = errString(err)
	return s
}

func (s Tasks) loaded(owner string, items []task.Task) Tasks {
	s.Items = items
	s.Owner = owner
	s.Status = StatusSucceeded
	s.Err = ""
	return s
}

func (s Tasks) created(t task.Task) Tasks {
	items := make([]task.Task, 0, len(s.Items)+1)
	items = append(items, t)
	s.Items = append(items, s.Items...)
	if s.Owner == "" {
		s.Owner = t.OwnerID
	}
	s.Status = StatusSucceeded
	s.Err = ""
	return s
}

func (s Tasks) updated(id string, p task.Patch) Tasks {
	items := make([]task.Task, len(s.Items))
	for i, t := range s.Items {
		if t.ID == id {
			t = p.Apply(t)
		}
		items[i] = t
	}
	s.Items = items
	s.Status = StatusSucceeded
	s.Err = ""
	return s
}

func (s Tasks) deleted(id string) Tasks {
	items := make([]task.Task, 0, len(s.Items))
	for _, t := range s.Items {
		if t.ID != id {
			items = append(items, t)
		}
	}
	s.Items = items
	s.Status = StatusSucceeded
	s.Err = ""
	return s
}
