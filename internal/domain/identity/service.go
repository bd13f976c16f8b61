// Package identity manages patients with their insurance, practitioners and
// staff accounts.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/platform/apperr"
)

const dateLayout = "2006-01-02"

type Service struct {
	patients      PatientRepository
	practitioners PractitionerRepository
	audit         audit.Recorder
	now           func() time.Time
}

func NewService(patients PatientRepository, practitioners PractitionerRepository, rec audit.Recorder) *Service {
	return &Service{patients: patients, practitioners: practitioners, audit: rec, now: time.Now}
}

// -- Patient --

// GenerateMRN returns an MRN of the form MRN-YYYYMMDD-XXXX.
func GenerateMRN(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("MRN-%s-%s", now.Format("20060102"), suffix)
}

func validatePatient(p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" {
		return apperr.Validation("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return apperr.Validation("last_name is required")
	}
	if p.DateOfBirth == "" {
		return apperr.Validation("date_of_birth is required")
	}
	dob, err := time.Parse(dateLayout, p.DateOfBirth)
	if err != nil {
		return apperr.Validation("date_of_birth must be YYYY-MM-DD")
	}
	if dob.After(time.Now()) {
		return apperr.Validation("date_of_birth is in the future")
	}
	if p.Gender != "" && !validGenders[strings.ToLower(p.Gender)] {
		return apperr.Validation("invalid gender: %s", p.Gender)
	}
	if p.Status != "" && p.Status != PatientActive && p.Status != PatientInactive {
		return apperr.Validation("invalid patient status: %s", p.Status)
	}
	return nil
}

func validateInsurance(ins *Insurance) error {
	if strings.TrimSpace(ins.Provider) == "" {
		return apperr.Validation("insurance provider is required")
	}
	if strings.TrimSpace(ins.PolicyNumber) == "" {
		return apperr.Validation("policy_number is required")
	}
	if ins.Status == "" {
		ins.Status = InsuranceActive
	}
	if !validInsuranceStatuses[ins.Status] {
		return apperr.Validation("invalid insurance status: %s", ins.Status)
	}
	if ins.Balance != nil && *ins.Balance < 0 {
		return apperr.Validation("insurance balance must not be negative")
	}
	return nil
}

func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	now := s.now().UTC()
	p.ID = uuid.New()
	if p.MRN == "" {
		p.MRN = GenerateMRN(now)
	}
	if p.Status == "" {
		p.Status = PatientActive
	}
	p.Gender = strings.ToLower(p.Gender)
	if p.Insurance == nil {
		p.Insurance = []Insurance{}
	}
	var primary uuid.UUID
	for i := range p.Insurance {
		if err := validateInsurance(&p.Insurance[i]); err != nil {
			return err
		}
		p.Insurance[i].ID = uuid.New()
		if p.Insurance[i].IsPrimary && primary == uuid.Nil {
			primary = p.Insurance[i].ID
		}
	}
	if primary != uuid.Nil {
		p.setPrimary(primary)
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}
	return s.audit.Record(ctx, "patient.create", "patients", p.ID.String(), p.MRN)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.patients.GetByMRN(ctx, mrn)
}

// ListPatients matches query against name, MRN, phone and email.
func (s *Service) ListPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, strings.TrimSpace(query), limit, offset)
}

// UpdatePatient replaces demographics. MRN, creation time and insurance are
// kept; insurance changes go through AddInsurance and UpdateInsurance.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := validatePatient(p); err != nil {
		return err
	}
	p.MRN = existing.MRN
	p.CreatedAt = existing.CreatedAt
	p.Insurance = existing.Insurance
	p.Gender = strings.ToLower(p.Gender)
	if p.Status == "" {
		p.Status = existing.Status
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	return s.audit.Record(ctx, "patient.update", "patients", p.ID.String(), "")
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		return err
	}
	return s.audit.Record(ctx, "patient.delete", "patients", id.String(), "")
}

func (s *Service) AddInsurance(ctx context.Context, patientID uuid.UUID, ins *Insurance) error {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	if err := validateInsurance(ins); err != nil {
		return err
	}
	ins.ID = uuid.New()
	p.Insurance = append(p.Insurance, *ins)
	if ins.IsPrimary {
		p.setPrimary(ins.ID)
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	return s.audit.Record(ctx, "insurance.add", "patients", patientID.String(), ins.Provider)
}

// UpdateInsurance replaces one record. Marking it primary clears the flag on
// the patient's other records.
func (s *Service) UpdateInsurance(ctx context.Context, patientID uuid.UUID, ins *Insurance) error {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	existing := p.insurance(ins.ID)
	if existing == nil {
		return apperr.NotFound("insurance", ins.ID)
	}
	if err := validateInsurance(ins); err != nil {
		return err
	}
	*existing = *ins
	if ins.IsPrimary {
		p.setPrimary(ins.ID)
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	return s.audit.Record(ctx, "insurance.update", "patients", patientID.String(), ins.ID.String())
}

// PrimaryActiveInsurance returns the record that participates in billing, or
// nil when the patient has none.
func (s *Service) PrimaryActiveInsurance(ctx context.Context, patientID uuid.UUID) (*Insurance, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return p.PrimaryActiveInsurance(), nil
}

// -- Practitioner --

func (s *Service) CreatePractitioner(ctx context.Context, p *Practitioner) error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return apperr.Validation("first_name and last_name are required")
	}
	now := s.now().UTC()
	p.ID = uuid.New()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.practitioners.Create(ctx, p); err != nil {
		return err
	}
	return s.audit.Record(ctx, "practitioner.create", "practitioners", p.ID.String(), p.DisplayName())
}

func (s *Service) GetPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return s.practitioners.GetByID(ctx, id)
}

func (s *Service) UpdatePractitioner(ctx context.Context, p *Practitioner) error {
	existing, err := s.practitioners.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return apperr.Validation("first_name and last_name are required")
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now().UTC()
	if err := s.practitioners.Update(ctx, p); err != nil {
		return err
	}
	return s.audit.Record(ctx, "practitioner.update", "practitioners", p.ID.String(), "")
}

func (s *Service) ListPractitioners(ctx context.Context, activeOnly bool, limit, offset int) ([]*Practitioner, int, error) {
	return s.practitioners.List(ctx, activeOnly, limit, offset)
}
