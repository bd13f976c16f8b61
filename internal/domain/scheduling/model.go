package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusCheckedIn  Status = "CHECKED_IN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

// transitions lists the statuses reachable from each status. Terminal
// statuses have no entry.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

var validStatuses = map[Status]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCheckedIn: true, StatusInProgress: true,
	StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

func (s Status) Valid() bool { return validStatuses[s] }

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Type string

const (
	TypeConsultation Type = "CONSULTATION"
	TypeFollowUp     Type = "FOLLOW_UP"
	TypeCheckup      Type = "CHECKUP"
	TypeProcedure    Type = "PROCEDURE"
	TypeEmergency    Type = "EMERGENCY"
)

var validTypes = map[Type]bool{
	TypeConsultation: true, TypeFollowUp: true, TypeCheckup: true, TypeProcedure: true, TypeEmergency: true,
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultDuration = 30
	maxDuration     = 480
)

type Appointment struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	PractitionerID uuid.UUID  `json:"practitioner_id"`
	ScheduledDate  string     `json:"scheduled_date"`
	ScheduledTime  string     `json:"scheduled_time"`
	Duration       int        `json:"duration"`
	Type           Type       `json:"type"`
	Reason         string     `json:"reason,omitempty"`
	Status         Status     `json:"status"`
	CheckInTime    *time.Time `json:"check_in_time,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StartsAt combines the scheduled date and time in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.ScheduledDate+" "+a.ScheduledTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q %q: %w", a.ScheduledDate, a.ScheduledTime, err)
	}
	return t, nil
}

// Overlaps reports whether a and b hold the same practitioner at the same
// time. Cancelled and no-show appointments never overlap.
func (a *Appointment) Overlaps(b *Appointment) bool {
	if a.ID == b.ID || a.PractitionerID != b.PractitionerID || a.ScheduledDate != b.ScheduledDate {
		return false
	}
	if a.Status == StatusCancelled || a.Status == StatusNoShow || b.Status == StatusCancelled || b.Status == StatusNoShow {
		return false
	}
	as, err1 := a.StartsAt(time.UTC)
	bs, err2 := b.StartsAt(time.UTC)
	if err1 != nil || err2 != nil {
		return false
	}
	ae := as.Add(time.Duration(a.Duration) * time.Minute)
	be := bs.Add(time.Duration(b.Duration) * time.Minute)
	return as.Before(be) && bs.Before(ae)
}

// Filter narrows ListAppointments. Zero fields match everything.
type Filter struct {
	Date           string
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	Status         Status
}

func (f Filter) matches(a *Appointment) bool {
	if f.Date != "" && a.ScheduledDate != f.Date {
		return false
	}
	if f.PractitionerID != uuid.Nil && a.PractitionerID != f.PractitionerID {
		return false
	}
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
