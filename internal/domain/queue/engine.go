package queue

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/domain/scheduling"
)

const (
	fallbackDuration = 30
	bufferMinutes    = 5
)

// Sort orders items by priority rank, then by check-in time. Items equal on
// both keep their input order.
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Priority.Rank(), items[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return items[i].CheckInTime.Before(items[j].CheckInTime)
	})
}

// Project sorts items and computes the read-time fields. appts holds the
// appointments that could be resolved; names maps practitioner ids to
// display names.
func Project(now time.Time, items []Item, appts map[uuid.UUID]*scheduling.Appointment, names map[uuid.UUID]string) []Entry {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	Sort(sorted)

	entries := make([]Entry, len(sorted))
	for i := range sorted {
		it := sorted[i]
		e := Entry{
			Item:            it,
			CurrentWaitTime: int(math.Floor(now.Sub(it.CheckInTime).Minutes())),
			Position:        i + 1,
			PriorityLabel:   PriorityLabel(it.Priority),
			StatusLabel:     StatusLabel(it.Status),
		}
		if it.AssignedPractitioner != nil {
			e.PractitionerName = names[*it.AssignedPractitioner]
		}
		e.EstimatedAppointmentTime = estimate(now, sorted, i, appts)
		entries[i] = e
	}
	return entries
}

// estimate projects when sorted[idx] will be seen. It returns nil when the
// item has no practitioner or its appointment is unknown.
func estimate(now time.Time, sorted []Item, idx int, appts map[uuid.UUID]*scheduling.Appointment) *time.Time {
	it := sorted[idx]
	if it.AssignedPractitioner == nil {
		return nil
	}
	own, ok := appts[it.AppointmentID]
	if !ok {
		return nil
	}
	ownDuration := own.Duration
	if ownDuration <= 0 {
		ownDuration = fallbackDuration
	}

	minutes := 0
	for j := 0; j < idx; j++ {
		ahead := sorted[j]
		if ahead.AssignedPractitioner == nil || *ahead.AssignedPractitioner != *it.AssignedPractitioner {
			continue
		}
		if ahead.Status.Terminal() {
			continue
		}
		d := ownDuration
		if a, ok := appts[ahead.AppointmentID]; ok {
			if a.Status.Terminal() {
				continue
			}
			if a.Duration > 0 {
				d = a.Duration
			}
		}
		minutes += d + bufferMinutes
	}
	t := now.Add(time.Duration(minutes) * time.Minute)
	return &t
}
