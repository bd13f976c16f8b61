package clinical

import (
	"time"

	"github.com/google/uuid"
)

type Prescription struct {
	Medication   string `json:"medication"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	DurationDays int    `json:"duration_days,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// TreatmentRecord is the practitioner's note for one consultation.
type TreatmentRecord struct {
	ID             uuid.UUID      `json:"id"`
	AppointmentID  uuid.UUID      `json:"appointment_id"`
	PatientID      uuid.UUID      `json:"patient_id"`
	PractitionerID uuid.UUID      `json:"practitioner_id"`
	ChiefComplaint string         `json:"chief_complaint,omitempty"`
	Diagnosis      string         `json:"diagnosis"`
	Notes          string         `json:"notes,omitempty"`
	Prescriptions  []Prescription `json:"prescriptions"`
	FollowUpDate   string         `json:"follow_up_date,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type TestCategory string

const (
	CategoryLab        TestCategory = "LAB"
	CategoryImaging    TestCategory = "IMAGING"
	CategoryCardiology TestCategory = "CARDIOLOGY"
	CategoryOther      TestCategory = "OTHER"
)

var validCategories = map[TestCategory]bool{
	CategoryLab: true, CategoryImaging: true, CategoryCardiology: true, CategoryOther: true,
}

type TestStatus string

const (
	TestOrdered         TestStatus = "ORDERED"
	TestSampleCollected TestStatus = "SAMPLE_COLLECTED"
	TestInProgress      TestStatus = "IN_PROGRESS"
	TestCompleted       TestStatus = "COMPLETED"
	TestCancelled       TestStatus = "CANCELLED"
)

var testTransitions = map[TestStatus][]TestStatus{
	TestOrdered:         {TestSampleCollected, TestInProgress, TestCancelled},
	TestSampleCollected: {TestInProgress, TestCancelled},
	TestInProgress:      {TestCompleted, TestCancelled},
}

func (s TestStatus) Valid() bool {
	_, ok := testTransitions[s]
	return ok || s == TestCompleted || s == TestCancelled
}

func (s TestStatus) CanTransition(next TestStatus) bool {
	for _, allowed := range testTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Pending reports whether the test still awaits a result.
func (s TestStatus) Pending() bool {
	return s == TestOrdered || s == TestSampleCollected || s == TestInProgress
}

type DiagnosticTest struct {
	ID            uuid.UUID    `json:"id"`
	PatientID     uuid.UUID    `json:"patient_id"`
	AppointmentID *uuid.UUID   `json:"appointment_id,omitempty"`
	OrderedBy     string       `json:"ordered_by"`
	Name          string       `json:"name"`
	Category      TestCategory `json:"category"`
	Status        TestStatus   `json:"status"`
	Result        string       `json:"result,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	OrderedAt     time.Time    `json:"ordered_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

type RecordFilter struct {
	PatientID      uuid.UUID
	PractitionerID uuid.UUID
	AppointmentID  uuid.UUID
}

func (f RecordFilter) matches(r *TreatmentRecord) bool {
	return (f.PatientID == uuid.Nil || r.PatientID == f.PatientID) &&
		(f.PractitionerID == uuid.Nil || r.PractitionerID == f.PractitionerID) &&
		(f.AppointmentID == uuid.Nil || r.AppointmentID == f.AppointmentID)
}

type TestFilter struct {
	PatientID uuid.UUID
	Status    TestStatus
	Category  TestCategory
}

func (f TestFilter) matches(t *DiagnosticTest) bool {
	return (f.PatientID == uuid.Nil || t.PatientID == f.PatientID) &&
		(f.Status == "" || t.Status == f.Status) &&
		(f.Category == "" || t.Category == f.Category)
}
