package identity

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/store"
)

func newTestServices() (*Service, *StaffService, *audit.Service) {
	s := store.NewMemoryStore()
	rec := audit.NewService(audit.NewStoreRepo(s))
	svc := NewService(NewPatientRepo(s), NewPractitionerRepo(s), rec)
	staff := NewStaffService(NewStaffRepo(s), rec)
	staff.cost = bcrypt.MinCost
	return svc, staff, rec
}

func newTestService() *Service {
	svc, _, _ := newTestServices()
	return svc
}

func ptr(f float64) *float64 { return &f }

func validPatient() *Patient {
	return &Patient{FirstName: "Ada", LastName: "Lovelace", DateOfBirth: "1985-12-10", Gender: "Female", Phone: "555-0100"}
}

func TestGenerateMRN(t *testing.T) {
	mrn := GenerateMRN(time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC))
	if !regexp.MustCompile(`^MRN-20240517-[0-9A-F]{4}$`).MatchString(mrn) {
		t.Errorf("unexpected mrn format %q", mrn)
	}
}

func TestService_RegisterPatient(t *testing.T) {
	svc, _, rec := newTestServices()
	ctx := context.Background()
	p := validPatient()
	p.Insurance = []Insurance{
		{Provider: "Acme Health", PolicyNumber: "A-1", IsPrimary: true, Balance: ptr(500)},
		{Provider: "Backup Co", PolicyNumber: "B-2", IsPrimary: true},
	}

	if err := svc.RegisterPatient(ctx, p); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}
	if p.ID == uuid.Nil || p.MRN == "" || p.Status != PatientActive || p.Gender != "female" {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if !p.Insurance[0].IsPrimary || p.Insurance[1].IsPrimary {
		t.Error("expected only the first primary insurance to stay primary")
	}
	if p.Insurance[1].Status != InsuranceActive {
		t.Errorf("expected default ACTIVE status, got %s", p.Insurance[1].Status)
	}

	got, err := svc.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if got.FullName() != "Ada Lovelace" {
		t.Errorf("unexpected name %q", got.FullName())
	}

	entries, _, _ := rec.List(ctx, audit.Filter{Action: "patient.create"}, 10, 0)
	if len(entries) != 1 {
		t.Errorf("expected 1 audit entry, got %d", len(entries))
	}
}

func TestService_RegisterPatient_Validation(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name   string
		mutate func(p *Patient)
	}{
		{"missing first name", func(p *Patient) { p.FirstName = " " }},
		{"missing last name", func(p *Patient) { p.LastName = "" }},
		{"missing dob", func(p *Patient) { p.DateOfBirth = "" }},
		{"bad dob", func(p *Patient) { p.DateOfBirth = "10/12/1985" }},
		{"future dob", func(p *Patient) { p.DateOfBirth = time.Now().AddDate(1, 0, 0).Format(dateLayout) }},
		{"bad gender", func(p *Patient) { p.Gender = "robot" }},
		{"bad insurance", func(p *Patient) { p.Insurance = []Insurance{{Provider: "X"}} }},
		{"negative balance", func(p *Patient) {
			p.Insurance = []Insurance{{Provider: "X", PolicyNumber: "1", Balance: ptr(-1)}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPatient()
			tt.mutate(p)
			if err := svc.RegisterPatient(context.Background(), p); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_RegisterPatient_DuplicateMRN(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := validPatient()
	a.MRN = "MRN-1"
	svc.RegisterPatient(ctx, a)

	b := validPatient()
	b.MRN = "MRN-1"
	if err := svc.RegisterPatient(ctx, b); !apperr.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestService_ListPatients_Query(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, name := range []string{"Grace", "Alan", "Gracie"} {
		p := validPatient()
		p.FirstName = name
		svc.RegisterPatient(ctx, p)
	}

	items, total, err := svc.ListPatients(ctx, "grac", 10, 0)
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 matches, got %d", total)
	}

	_, total, _ = svc.ListPatients(ctx, "", 1, 0)
	if total != 3 {
		t.Errorf("expected 3 total, got %d", total)
	}
}

func TestService_UpdatePatient_KeepsIdentity(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := validPatient()
	p.Insurance = []Insurance{{Provider: "Acme", PolicyNumber: "1", IsPrimary: true}}
	svc.RegisterPatient(ctx, p)

	upd := validPatient()
	upd.ID = p.ID
	upd.Phone = "555-0199"
	upd.MRN = "forged"
	if err := svc.UpdatePatient(ctx, upd); err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}
	got, _ := svc.GetPatient(ctx, p.ID)
	if got.Phone != "555-0199" || got.MRN != p.MRN || len(got.Insurance) != 1 {
		t.Errorf("unexpected patient after update: %+v", got)
	}

	upd.ID = uuid.New()
	if err := svc.UpdatePatient(ctx, upd); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_DeletePatient(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := validPatient()
	svc.RegisterPatient(ctx, p)

	if err := svc.DeletePatient(ctx, p.ID); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}
	if _, err := svc.GetPatient(ctx, p.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := svc.DeletePatient(ctx, p.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestService_InsurancePrimaryIsExclusive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := validPatient()
	svc.RegisterPatient(ctx, p)

	first := &Insurance{Provider: "Acme", PolicyNumber: "1", IsPrimary: true, Balance: ptr(200)}
	if err := svc.AddInsurance(ctx, p.ID, first); err != nil {
		t.Fatalf("AddInsurance: %v", err)
	}
	second := &Insurance{Provider: "Beta", PolicyNumber: "2", Balance: ptr(900)}
	svc.AddInsurance(ctx, p.ID, second)

	primary, err := svc.PrimaryActiveInsurance(ctx, p.ID)
	if err != nil || primary == nil || primary.ID != first.ID {
		t.Fatalf("expected first as primary, got %+v, %v", primary, err)
	}

	second.IsPrimary = true
	if err := svc.UpdateInsurance(ctx, p.ID, second); err != nil {
		t.Fatalf("UpdateInsurance: %v", err)
	}
	got, _ := svc.GetPatient(ctx, p.ID)
	primaries := 0
	for _, ins := range got.Insurance {
		if ins.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 || got.PrimaryActiveInsurance().ID != second.ID {
		t.Errorf("expected second to be the only primary, got %+v", got.Insurance)
	}
}

func TestService_PrimaryActiveInsurance_IgnoresInactive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := validPatient()
	p.Insurance = []Insurance{{Provider: "Acme", PolicyNumber: "1", IsPrimary: true, Status: InsuranceExpired, Balance: ptr(100)}}
	svc.RegisterPatient(ctx, p)

	ins, err := svc.PrimaryActiveInsurance(ctx, p.ID)
	if err != nil {
		t.Fatalf("PrimaryActiveInsurance: %v", err)
	}
	if ins != nil {
		t.Errorf("expected no active primary insurance, got %+v", ins)
	}
}

func TestService_UpdateInsurance_NotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := validPatient()
	svc.RegisterPatient(ctx, p)

	err := svc.UpdateInsurance(ctx, p.ID, &Insurance{ID: uuid.New(), Provider: "X", PolicyNumber: "1"})
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPractitioner_DisplayName(t *testing.T) {
	tests := []struct {
		p    Practitioner
		want string
	}{
		{Practitioner{Title: "Dr.", FirstName: "Jane", LastName: "Doe"}, "Dr. Jane Doe"},
		{Practitioner{FirstName: "Sam", LastName: "Lee"}, "Sam Lee"},
		{Practitioner{Title: " ", FirstName: "Sam", LastName: "Lee"}, "Sam Lee"},
	}
	for _, tt := range tests {
		if got := tt.p.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}

func TestService_Practitioners(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := &Practitioner{Title: "Dr.", FirstName: "Jane", LastName: "Doe", Specialty: "Cardiology"}
	if err := svc.CreatePractitioner(ctx, p); err != nil {
		t.Fatalf("CreatePractitioner: %v", err)
	}
	if !p.Active {
		t.Error("expected new practitioner to be active")
	}
	if err := svc.CreatePractitioner(ctx, &Practitioner{FirstName: "NoLast"}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	inactive := &Practitioner{FirstName: "Old", LastName: "Timer"}
	svc.CreatePractitioner(ctx, inactive)
	inactive.Active = false
	if err := svc.UpdatePractitioner(ctx, inactive); err != nil {
		t.Fatalf("UpdatePractitioner: %v", err)
	}

	_, total, _ := svc.ListPractitioners(ctx, true, 10, 0)
	if total != 1 {
		t.Errorf("expected 1 active practitioner, got %d", total)
	}
	_, total, _ = svc.ListPractitioners(ctx, false, 10, 0)
	if total != 2 {
		t.Errorf("expected 2 practitioners, got %d", total)
	}
}

func TestStaffService_CreateAndAuthenticate(t *testing.T) {
	_, staff, _ := newTestServices()
	ctx := context.Background()
	st := &Staff{Username: "nina", Name: "Nina Nurse", Roles: []string{auth.RoleNurse}}

	if err := staff.CreateStaff(ctx, st, "correct-horse"); err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if st.PasswordHash == "" || st.PasswordHash == "correct-horse" {
		t.Error("expected password to be hashed")
	}

	got, err := staff.Authenticate(ctx, "NINA", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != st.ID {
		t.Errorf("expected %s, got %s", st.ID, got.ID)
	}

	if _, err := staff.Authenticate(ctx, "nina", "wrong-password"); !apperr.IsUnauthorized(err) {
		t.Errorf("expected unauthorized for bad password, got %v", err)
	}
	if _, err := staff.Authenticate(ctx, "ghost", "whatever1"); !apperr.IsUnauthorized(err) {
		t.Errorf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestStaffService_CreateValidation(t *testing.T) {
	_, staff, _ := newTestServices()
	ctx := context.Background()

	tests := []struct {
		name     string
		st       Staff
		password string
		check    func(error) bool
	}{
		{"no username", Staff{Roles: []string{auth.RoleNurse}}, "longenough", apperr.IsValidation},
		{"short password", Staff{Username: "a", Roles: []string{auth.RoleNurse}}, "short", apperr.IsValidation},
		{"no roles", Staff{Username: "a"}, "longenough", apperr.IsValidation},
		{"bad role", Staff{Username: "a", Roles: []string{"janitor"}}, "longenough", apperr.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.st
			if err := staff.CreateStaff(ctx, &st, tt.password); !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}

	staff.CreateStaff(ctx, &Staff{Username: "dup", Roles: []string{auth.RoleDoctor}}, "longenough")
	if err := staff.CreateStaff(ctx, &Staff{Username: "DUP", Roles: []string{auth.RoleDoctor}}, "longenough"); !apperr.IsConflict(err) {
		t.Errorf("expected conflict for duplicate username, got %v", err)
	}
}
