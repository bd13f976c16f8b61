package triage

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/domain/queue"
)

type Assessment struct {
	ID             uuid.UUID      `json:"id"`
	PatientID      uuid.UUID      `json:"patient_id"`
	AppointmentID  uuid.UUID      `json:"appointment_id"`
	AssessedBy     string         `json:"assessed_by"`
	ChiefComplaint string         `json:"chief_complaint"`
	Priority       queue.Priority `json:"priority"`
	PainScale      int            `json:"pain_scale"`
	Symptoms       []string       `json:"symptoms,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	VitalsID       *uuid.UUID     `json:"vitals_id,omitempty"`
	AssessedAt     time.Time      `json:"assessed_at"`
}

// Vitals is one set of measurements. Nil fields were not taken.
// Temperature is in °C, weight in kg, height in cm.
type Vitals struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	AppointmentID    *uuid.UUID `json:"appointment_id,omitempty"`
	RecordedBy       string     `json:"recorded_by"`
	HeartRate        *int       `json:"heart_rate,omitempty"`
	Systolic         *int       `json:"systolic,omitempty"`
	Diastolic        *int       `json:"diastolic,omitempty"`
	Temperature      *float64   `json:"temperature,omitempty"`
	RespiratoryRate  *int       `json:"respiratory_rate,omitempty"`
	OxygenSaturation *int       `json:"oxygen_saturation,omitempty"`
	Weight           *float64   `json:"weight,omitempty"`
	Height           *float64   `json:"height,omitempty"`
	RecordedAt       time.Time  `json:"recorded_at"`
}

// BMI returns weight/height² when both are present.
func (v *Vitals) BMI() *float64 {
	if v.Weight == nil || v.Height == nil || *v.Height <= 0 {
		return nil
	}
	m := *v.Height / 100
	bmi := *v.Weight / (m * m)
	return &bmi
}

// Filter narrows assessment and vitals listings.
type Filter struct {
	PatientID     uuid.UUID
	AppointmentID uuid.UUID
}

func (f Filter) matchAssessment(a *Assessment) bool {
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	return f.AppointmentID == uuid.Nil || a.AppointmentID == f.AppointmentID
}

func (f Filter) matchVitals(v *Vitals) bool {
	if f.PatientID != uuid.Nil && v.PatientID != f.PatientID {
		return false
	}
	return f.AppointmentID == uuid.Nil || (v.AppointmentID != nil && *v.AppointmentID == f.AppointmentID)
}
