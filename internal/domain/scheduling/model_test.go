package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAppointment_Overlaps(t *testing.T) {
	doc := uuid.New()
	base := func(tm string, dur int) *Appointment {
		return &Appointment{ID: uuid.New(), PractitionerID: doc, ScheduledDate: "2024-05-17", ScheduledTime: tm, Duration: dur, Status: StatusScheduled}
	}

	tests := []struct {
		name string
		b    *Appointment
		want bool
	}{
		{"same slot", base("09:00", 30), true},
		{"starts inside", base("09:15", 30), true},
		{"contains", base("08:30", 120), true},
		{"adjacent after", base("09:30", 30), false},
		{"adjacent before", base("08:30", 30), false},
		{"other day", &Appointment{ID: uuid.New(), PractitionerID: doc, ScheduledDate: "2024-05-18", ScheduledTime: "09:00", Duration: 30}, false},
		{"other practitioner", &Appointment{ID: uuid.New(), PractitionerID: uuid.New(), ScheduledDate: "2024-05-17", ScheduledTime: "09:00", Duration: 30}, false},
		{"cancelled", &Appointment{ID: uuid.New(), PractitionerID: doc, ScheduledDate: "2024-05-17", ScheduledTime: "09:00", Duration: 30, Status: StatusCancelled}, false},
	}
	a := base("09:00", 30)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(a); got != tt.want {
				t.Errorf("reverse Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
	if a.Overlaps(a) {
		t.Error("an appointment must not overlap itself")
	}
}

func TestAppointment_StartsAt(t *testing.T) {
	a := &Appointment{ScheduledDate: "2024-05-17", ScheduledTime: "14:45"}
	got, err := a.StartsAt(time.UTC)
	if err != nil {
		t.Fatalf("StartsAt: %v", err)
	}
	if want := time.Date(2024, 5, 17, 14, 45, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", got, want)
	}
	if _, err := (&Appointment{ScheduledDate: "17/05/2024", ScheduledTime: "14:45"}).StartsAt(time.UTC); err == nil {
		t.Error("expected an error for a malformed date")
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInProgress} {
		if s.Terminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}
