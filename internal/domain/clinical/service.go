// Package clinical holds consultation notes with their prescriptions and the
// diagnostic tests ordered for patients.
package clinical

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
)

type Appointments interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

type Patients interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type Service struct {
	records      TreatmentRecordRepository
	tests        DiagnosticTestRepository
	appointments Appointments
	patients     Patients
	audit        audit.Recorder
	now          func() time.Time
}

func NewService(records TreatmentRecordRepository, tests DiagnosticTestRepository, appts Appointments, patients Patients, rec audit.Recorder) *Service {
	return &Service{records: records, tests: tests, appointments: appts, patients: patients, audit: rec, now: time.Now}
}

// -- Treatment Record --

func validateRecord(r *TreatmentRecord) error {
	if strings.TrimSpace(r.Diagnosis) == "" {
		return apperr.Validation("diagnosis is required")
	}
	if r.FollowUpDate != "" {
		if _, err := time.Parse(scheduling.DateLayout, r.FollowUpDate); err != nil {
			return apperr.Validation("follow_up_date must be YYYY-MM-DD")
		}
	}
	for i, p := range r.Prescriptions {
		if strings.TrimSpace(p.Medication) == "" || strings.TrimSpace(p.Dosage) == "" || strings.TrimSpace(p.Frequency) == "" {
			return apperr.Validation("prescription %d needs medication, dosage and frequency", i+1)
		}
		if p.DurationDays < 0 {
			return apperr.Validation("prescription %d has a negative duration", i+1)
		}
	}
	if r.Prescriptions == nil {
		r.Prescriptions = []Prescription{}
	}
	return nil
}

// CreateTreatmentRecord stores the note for an appointment. Patient and
// practitioner are taken from the appointment; one note per appointment.
func (s *Service) CreateTreatmentRecord(ctx context.Context, r *TreatmentRecord) error {
	if r.AppointmentID == uuid.Nil {
		return apperr.Validation("appointment_id is required")
	}
	if err := validateRecord(r); err != nil {
		return err
	}
	appt, err := s.appointments.GetAppointment(ctx, r.AppointmentID)
	if err != nil {
		return err
	}
	if appt.Status == scheduling.StatusCancelled || appt.Status == scheduling.StatusNoShow {
		return apperr.Conflict("appointment is %s", appt.Status)
	}
	_, n, err := s.records.List(ctx, RecordFilter{AppointmentID: appt.ID}, 1, 0)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("appointment %s already has a treatment record", appt.ID)
	}

	now := s.now().UTC()
	r.ID = uuid.New()
	r.PatientID = appt.PatientID
	r.PractitionerID = appt.PractitionerID
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := s.records.Create(ctx, r); err != nil {
		return err
	}
	return s.audit.Record(ctx, "treatment.create", "treatment_records", r.ID.String(), r.Diagnosis)
}

func (s *Service) GetTreatmentRecord(ctx context.Context, id uuid.UUID) (*TreatmentRecord, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListTreatmentRecords(ctx context.Context, f RecordFilter, limit, offset int) ([]*TreatmentRecord, int, error) {
	return s.records.List(ctx, f, limit, offset)
}

// UpdateTreatmentRecord replaces the clinical content of a note.
func (s *Service) UpdateTreatmentRecord(ctx context.Context, r *TreatmentRecord) error {
	existing, err := s.records.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	if err := validateRecord(r); err != nil {
		return err
	}
	r.AppointmentID = existing.AppointmentID
	r.PatientID = existing.PatientID
	r.PractitionerID = existing.PractitionerID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.now().UTC()
	if err := s.records.Update(ctx, r); err != nil {
		return err
	}
	return s.audit.Record(ctx, "treatment.update", "treatment_records", r.ID.String(), r.Diagnosis)
}

// -- Diagnostic Test --

func (s *Service) OrderTest(ctx context.Context, t *DiagnosticTest) error {
	if t.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Validation("name is required")
	}
	t.Category = TestCategory(strings.ToUpper(string(t.Category)))
	if t.Category == "" {
		t.Category = CategoryOther
	}
	if !validCategories[t.Category] {
		return apperr.Validation("invalid category: %s", t.Category)
	}
	if _, err := s.patients.GetPatient(ctx, t.PatientID); err != nil {
		return err
	}
	if t.AppointmentID != nil {
		appt, err := s.appointments.GetAppointment(ctx, *t.AppointmentID)
		if err != nil {
			return err
		}
		if appt.PatientID != t.PatientID {
			return apperr.Validation("patient_id does not match the appointment")
		}
	}

	t.ID = uuid.New()
	t.Status = TestOrdered
	t.Result = ""
	t.CompletedAt = nil
	t.OrderedAt = s.now().UTC()
	if t.OrderedBy == "" {
		t.OrderedBy = auth.UserIDFromContext(ctx)
	}
	if err := s.tests.Create(ctx, t); err != nil {
		return err
	}
	return s.audit.Record(ctx, "test.order", "diagnostic_tests", t.ID.String(), t.Name)
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *Service) ListTests(ctx context.Context, f TestFilter, limit, offset int) ([]*DiagnosticTest, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Validation("invalid status: %s", f.Status)
	}
	return s.tests.List(ctx, f, limit, offset)
}

// UpdateTestStatus advances a test. Completion goes through RecordResult.
func (s *Service) UpdateTestStatus(ctx context.Context, id uuid.UUID, status TestStatus) (*DiagnosticTest, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid status: %s", status)
	}
	if status == TestCompleted {
		return nil, apperr.Validation("record a result to complete a test")
	}
	return s.advance(ctx, id, status, "test.status", func(*DiagnosticTest) {})
}

// RecordResult stores the result of an in-progress test and completes it.
func (s *Service) RecordResult(ctx context.Context, id uuid.UUID, result string) (*DiagnosticTest, error) {
	if strings.TrimSpace(result) == "" {
		return nil, apperr.Validation("result is required")
	}
	return s.advance(ctx, id, TestCompleted, "test.result", func(t *DiagnosticTest) {
		now := s.now().UTC()
		t.Result = result
		t.CompletedAt = &now
	})
}

func (s *Service) advance(ctx context.Context, id uuid.UUID, next TestStatus, action string, mutate func(*DiagnosticTest)) (*DiagnosticTest, error) {
	t, err := s.tests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Status.CanTransition(next) {
		return nil, apperr.Conflict("cannot move test from %s to %s", t.Status, next)
	}
	t.Status = next
	mutate(t)
	if err := s.tests.Update(ctx, t); err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, action, "diagnostic_tests", t.ID.String(), string(next)); err != nil {
		return nil, err
	}
	return t, nil
}

// PendingTests counts tests still awaiting a result.
func (s *Service) PendingTests(ctx context.Context) (int, error) {
	all, _, err := s.tests.List(ctx, TestFilter{}, 0, 0)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range all {
		if t.Status.Pending() {
			n++
		}
	}
	return n, nil
}
