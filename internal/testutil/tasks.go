package testutil

import (
	"time"

	"todo/internal/service"
	"todo/internal/task"
)

// TaskFields builds a stored task document owned by ownerID.
func TaskFields(ownerID, title, description string, completed bool, created time.Time) service.Fields {
	return service.Fields{
		task.FieldTitle:       title,
		task.FieldDescription: description,
		task.FieldCompleted:   completed,
		task.FieldPriority:    string(task.PriorityMedium),
		task.FieldOwner:       ownerID,
		task.FieldCreatedAt:   service.Timestamp(created),
		task.FieldUpdatedAt:   service.Timestamp(created),
	}
}

// Backend bundles fakes into a service.Backend.
func Backend(id *FakeIdentity, docs *FakeDocuments) service.Backend {
	return service.Backend{Identity: id, Documents: docs}
}
