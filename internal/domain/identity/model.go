package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PatientStatus string

const (
	PatientActive   PatientStatus = "ACTIVE"
	PatientInactive PatientStatus = "INACTIVE"
)

type InsuranceStatus string

const (
	InsuranceActive   InsuranceStatus = "ACTIVE"
	InsuranceInactive InsuranceStatus = "INACTIVE"
	InsuranceExpired  InsuranceStatus = "EXPIRED"
)

var validInsuranceStatuses = map[InsuranceStatus]bool{
	InsuranceActive: true, InsuranceInactive: true, InsuranceExpired: true,
}

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true, "unknown": true,
}

// Insurance is a patient's coverage record. Balance is the remaining
// coverage in currency units; nil means the payer has not reported one.
type Insurance struct {
	ID           uuid.UUID       `json:"id"`
	Provider     string          `json:"provider"`
	PolicyNumber string          `json:"policy_number"`
	GroupNumber  string          `json:"group_number,omitempty"`
	IsPrimary    bool            `json:"is_primary"`
	Status       InsuranceStatus `json:"status"`
	Balance      *float64        `json:"balance,omitempty"`
	ValidUntil   string          `json:"valid_until,omitempty"`
}

type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone"`
}

type Patient struct {
	ID               uuid.UUID         `json:"id"`
	MRN              string            `json:"mrn"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	DateOfBirth      string            `json:"date_of_birth"`
	Gender           string            `json:"gender,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Email            string            `json:"email,omitempty"`
	Address          *Address          `json:"address,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergency_contact,omitempty"`
	Allergies        []string          `json:"allergies,omitempty"`
	Insurance        []Insurance       `json:"insurance"`
	Status           PatientStatus     `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PrimaryActiveInsurance returns the primary ACTIVE record, or nil.
func (p *Patient) PrimaryActiveInsurance() *Insurance {
	for i := range p.Insurance {
		if p.Insurance[i].IsPrimary && p.Insurance[i].Status == InsuranceActive {
			return &p.Insurance[i]
		}
	}
	return nil
}

func (p *Patient) insurance(id uuid.UUID) *Insurance {
	for i := range p.Insurance {
		if p.Insurance[i].ID == id {
			return &p.Insurance[i]
		}
	}
	return nil
}

// setPrimary makes id the only primary record.
func (p *Patient) setPrimary(id uuid.UUID) {
	for i := range p.Insurance {
		p.Insurance[i].IsPrimary = p.Insurance[i].ID == id
	}
}

func (p *Patient) matches(q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, field := range []string{p.FullName(), p.MRN, p.Phone, p.Email} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

type Practitioner struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Specialty string    `json:"specialty,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName renders "Dr. Jane Doe", omitting an empty title.
func (p *Practitioner) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Title, p.FirstName, p.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Staff is a user of the clinic system.
type Staff struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	PasswordHash   string     `json:"password_hash"`
	Roles          []string   `json:"roles"`
	PractitionerID *uuid.UUID `json:"practitioner_id,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// StaffView is Staff without credentials, for API responses.
type StaffView struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	Roles          []string   `json:"roles"`
	PractitionerID *uuid.UUID `json:"practitioner_id,omitempty"`
	Active         bool       `json:"active"`
}

func (s *Staff) View() StaffView {
	return StaffView{
		ID:             s.ID,
		Username:       s.Username,
		Name:           s.Name,
		Roles:          s.Roles,
		PractitionerID: s.PractitionerID,
		Active:         s.Active,
	}
}
