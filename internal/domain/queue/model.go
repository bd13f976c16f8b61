package queue

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityCritical   Priority = "CRITICAL"
	PriorityUrgent     Priority = "URGENT"
	PrioritySemiUrgent Priority = "SEMI_URGENT"
	PriorityNonUrgent  Priority = "NON_URGENT"
)

var priorityRank = map[Priority]int{
	PriorityCritical:   0,
	PriorityUrgent:     1,
	PrioritySemiUrgent: 2,
	PriorityNonUrgent:  3,
}

// baseWait is the initial estimated wait in minutes per priority.
var baseWait = map[Priority]int{
	PriorityCritical:   5,
	PriorityUrgent:     15,
	PrioritySemiUrgent: 30,
	PriorityNonUrgent:  45,
}

func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank orders priorities; lower is seen first.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// BaseWait returns the initial wait estimate in minutes.
func (p Priority) BaseWait() int { return baseWait[p] }

type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Item is the persisted queue record. One item per appointment.
type Item struct {
	ID                   uuid.UUID  `json:"id"`
	PatientID            uuid.UUID  `json:"patient_id"`
	AppointmentID        uuid.UUID  `json:"appointment_id"`
	Priority             Priority   `json:"priority"`
	Status               Status     `json:"status"`
	CheckInTime          time.Time  `json:"check_in_time"`
	EstimatedWaitTime    int        `json:"estimated_wait_time"`
	AssignedPractitioner *uuid.UUID `json:"assigned_practitioner,omitempty"`
}

// Entry is an Item as returned by List, with the fields computed at read
// time. None of them are stored.
type Entry struct {
	Item
	CurrentWaitTime          int        `json:"current_wait_time"`
	Position                 int        `json:"position"`
	EstimatedAppointmentTime *time.Time `json:"estimated_appointment_time,omitempty"`
	PractitionerName         string     `json:"practitioner_name,omitempty"`
	PriorityLabel            string     `json:"priority_label"`
	StatusLabel              string     `json:"status_label"`
}
