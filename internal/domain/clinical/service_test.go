package clinical

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/store"
)

type mockAppointments map[uuid.UUID]*scheduling.Appointment

func (m mockAppointments) GetAppointment(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	a, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id)
	}
	return a, nil
}

type mockPatients map[uuid.UUID]*identity.Patient

func (m mockPatients) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return p, nil
}

type fixture struct {
	svc            *Service
	appts          mockAppointments
	patientID      uuid.UUID
	practitionerID uuid.UUID
	apptID         uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{patientID: uuid.New(), practitionerID: uuid.New(), apptID: uuid.New()}
	f.appts = mockAppointments{f.apptID: {
		ID: f.apptID, PatientID: f.patientID, PractitionerID: f.practitionerID, Status: scheduling.StatusInProgress,
	}}
	s := store.NewMemoryStore()
	f.svc = NewService(NewTreatmentRecordRepo(s), NewDiagnosticTestRepo(s), f.appts,
		mockPatients{f.patientID: {ID: f.patientID}}, audit.Nop{})
	return f
}

func TestService_CreateTreatmentRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := &TreatmentRecord{
		AppointmentID:  f.apptID,
		ChiefComplaint: "cough",
		Diagnosis:      "acute bronchitis",
		Prescriptions:  []Prescription{{Medication: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", DurationDays: 7}},
		FollowUpDate:   "2024-06-15",
	}
	if err := f.svc.CreateTreatmentRecord(ctx, r); err != nil {
		t.Fatalf("CreateTreatmentRecord: %v", err)
	}
	if r.PatientID != f.patientID || r.PractitionerID != f.practitionerID {
		t.Errorf("expected ids from appointment, got %+v", r)
	}

	dup := &TreatmentRecord{AppointmentID: f.apptID, Diagnosis: "again"}
	if err := f.svc.CreateTreatmentRecord(ctx, dup); !apperr.IsConflict(err) {
		t.Errorf("expected conflict for second record, got %v", err)
	}

	items, total, _ := f.svc.ListTreatmentRecords(ctx, RecordFilter{PatientID: f.patientID}, 10, 0)
	if total != 1 || len(items[0].Prescriptions) != 1 {
		t.Errorf("unexpected list result %d", total)
	}
}

func TestService_CreateTreatmentRecord_Validation(t *testing.T) {
	f := newFixture()
	cancelled := uuid.New()
	f.appts[cancelled] = &scheduling.Appointment{ID: cancelled, PatientID: f.patientID, Status: scheduling.StatusCancelled}

	tests := []struct {
		name  string
		r     TreatmentRecord
		check func(error) bool
	}{
		{"no appointment", TreatmentRecord{Diagnosis: "x"}, apperr.IsValidation},
		{"no diagnosis", TreatmentRecord{AppointmentID: f.apptID}, apperr.IsValidation},
		{"bad follow up", TreatmentRecord{AppointmentID: f.apptID, Diagnosis: "x", FollowUpDate: "next week"}, apperr.IsValidation},
		{"incomplete prescription", TreatmentRecord{AppointmentID: f.apptID, Diagnosis: "x", Prescriptions: []Prescription{{Medication: "A"}}}, apperr.IsValidation},
		{"unknown appointment", TreatmentRecord{AppointmentID: uuid.New(), Diagnosis: "x"}, apperr.IsNotFound},
		{"cancelled appointment", TreatmentRecord{AppointmentID: cancelled, Diagnosis: "x"}, apperr.IsConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.r
			if err := f.svc.CreateTreatmentRecord(context.Background(), &r); !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestService_UpdateTreatmentRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := &TreatmentRecord{AppointmentID: f.apptID, Diagnosis: "flu"}
	f.svc.CreateTreatmentRecord(ctx, r)

	upd := &TreatmentRecord{ID: r.ID, Diagnosis: "influenza A", PatientID: uuid.New()}
	if err := f.svc.UpdateTreatmentRecord(ctx, upd); err != nil {
		t.Fatalf("UpdateTreatmentRecord: %v", err)
	}
	got, _ := f.svc.GetTreatmentRecord(ctx, r.ID)
	if got.Diagnosis != "influenza A" || got.PatientID != f.patientID {
		t.Errorf("unexpected record after update %+v", got)
	}
}

func TestService_DiagnosticTestLifecycle(t *testing.T) {
	f := newFixture()
	ctx := auth.WithUser(context.Background(), "doc-1", []string{auth.RoleDoctor})
	test := &DiagnosticTest{PatientID: f.patientID, AppointmentID: &f.apptID, Name: "Complete blood count", Category: "lab"}

	if err := f.svc.OrderTest(ctx, test); err != nil {
		t.Fatalf("OrderTest: %v", err)
	}
	if test.Status != TestOrdered || test.Category != CategoryLab || test.OrderedBy != "doc-1" {
		t.Errorf("unexpected test %+v", test)
	}
	if n, _ := f.svc.PendingTests(ctx); n != 1 {
		t.Errorf("expected 1 pending test, got %d", n)
	}

	if _, err := f.svc.RecordResult(ctx, test.ID, "normal"); !apperr.IsConflict(err) {
		t.Errorf("expected conflict recording result before processing, got %v", err)
	}
	if _, err := f.svc.UpdateTestStatus(ctx, test.ID, TestCompleted); !apperr.IsValidation(err) {
		t.Errorf("expected validation error completing via status, got %v", err)
	}
	if _, err := f.svc.UpdateTestStatus(ctx, test.ID, TestSampleCollected); err != nil {
		t.Fatalf("UpdateTestStatus: %v", err)
	}
	if _, err := f.svc.UpdateTestStatus(ctx, test.ID, TestInProgress); err != nil {
		t.Fatalf("UpdateTestStatus: %v", err)
	}
	done, err := f.svc.RecordResult(ctx, test.ID, "WBC 6.1, Hb 14.2")
	if err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if done.Status != TestCompleted || done.CompletedAt == nil || done.Result == "" {
		t.Errorf("unexpected completed test %+v", done)
	}
	if _, err := f.svc.UpdateTestStatus(ctx, test.ID, TestCancelled); !apperr.IsConflict(err) {
		t.Errorf("expected conflict cancelling a completed test, got %v", err)
	}
	if n, _ := f.svc.PendingTests(ctx); n != 0 {
		t.Errorf("expected no pending tests, got %d", n)
	}
}

func TestService_OrderTest_Validation(t *testing.T) {
	f := newFixture()
	otherAppt := uuid.New()
	f.appts[otherAppt] = &scheduling.Appointment{ID: otherAppt, PatientID: uuid.New()}

	tests := []struct {
		name  string
		t     DiagnosticTest
		check func(error) bool
	}{
		{"no patient", DiagnosticTest{Name: "x"}, apperr.IsValidation},
		{"no name", DiagnosticTest{PatientID: f.patientID}, apperr.IsValidation},
		{"bad category", DiagnosticTest{PatientID: f.patientID, Name: "x", Category: "GENETIC"}, apperr.IsValidation},
		{"unknown patient", DiagnosticTest{PatientID: uuid.New(), Name: "x"}, apperr.IsNotFound},
		{"other patient's appointment", DiagnosticTest{PatientID: f.patientID, Name: "x", AppointmentID: &otherAppt}, apperr.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt := tt.t
			if err := f.svc.OrderTest(context.Background(), &dt); !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestService_ListTests_Filters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.OrderTest(ctx, &DiagnosticTest{PatientID: f.patientID, Name: "ECG", Category: CategoryCardiology})
	f.svc.OrderTest(ctx, &DiagnosticTest{PatientID: f.patientID, Name: "Chest X-ray", Category: CategoryImaging})

	_, total, _ := f.svc.ListTests(ctx, TestFilter{Category: CategoryImaging}, 10, 0)
	if total != 1 {
		t.Errorf("expected 1 imaging test, got %d", total)
	}
	if _, _, err := f.svc.ListTests(ctx, TestFilter{Status: "LOST"}, 10, 0); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
