package audit

import (
	"time"

	"github.com/google/uuid"
)

// SystemActor is recorded when no authenticated user is in context.
const SystemActor = "system"

// Entry is one immutable audit record.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Resource   string
	ResourceID string
	Actor      string
	Action     string
}

func (f Filter) matches(e *Entry) bool {
	return (f.Resource == "" || e.Resource == f.Resource) &&
		(f.ResourceID == "" || e.ResourceID == f.ResourceID) &&
		(f.Actor == "" || e.Actor == f.Actor) &&
		(f.Action == "" || e.Action == f.Action)
}
