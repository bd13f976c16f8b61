// Package billing issues invoices, splits them between insurance and patient
// and records patient payments.
package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/events"
	"github.com/clinicops/clinic/pkg/pagination"
)

// DefaultDueDays is used when the service is built with a non-positive
// payment term.
const DefaultDueDays = 30

type Patients interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type Appointments interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

type Service struct {
	invoices     InvoiceRepository
	patients     Patients
	appointments Appointments
	audit        audit.Recorder
	events       events.Publisher
	logger       zerolog.Logger
	dueDays      int
	now          func() time.Time
}

func NewService(invoices InvoiceRepository, patients Patients, appts Appointments, rec audit.Recorder, pub events.Publisher, logger zerolog.Logger, dueDays int) *Service {
	if dueDays <= 0 {
		dueDays = DefaultDueDays
	}
	return &Service{
		invoices:     invoices,
		patients:     patients,
		appointments: appts,
		audit:        rec,
		events:       pub,
		logger:       logger.With().Str("component", "billing").Logger(),
		dueDays:      dueDays,
		now:          time.Now,
	}
}

// InvoiceInput is what a caller supplies to bill a visit.
type InvoiceInput struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Services      []LineItem `json:"services"`
	Notes         string     `json:"notes,omitempty"`
}

// GenerateInvoiceNumber returns a number of the form INV-YYYYMMDD-XXXXXX.
func GenerateInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), suffix)
}

func validateLineItems(items []LineItem) error {
	if len(items) == 0 {
		return apperr.Validation("at least one service is required")
	}
	for i := range items {
		it := &items[i]
		if strings.TrimSpace(it.Description) == "" && strings.TrimSpace(it.ServiceID) == "" {
			return apperr.Validation("services[%d]: description or service_id is required", i)
		}
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		if it.Quantity < 0 {
			return apperr.Validation("services[%d]: quantity must be positive", i)
		}
		if it.UnitPrice < 0 {
			return apperr.Validation("services[%d]: unit_price must not be negative", i)
		}
	}
	return nil
}

// resolvePatient prefers the appointment's patient and falls back to the
// explicit patient id. The returned appointment id is nil when the input
// named an appointment that does not exist.
func (s *Service) resolvePatient(ctx context.Context, in *InvoiceInput) (*identity.Patient, *uuid.UUID, error) {
	patientID := in.PatientID
	var apptID *uuid.UUID
	if in.AppointmentID != nil {
		appt, err := s.appointments.GetAppointment(ctx, *in.AppointmentID)
		switch {
		case err == nil:
			if patientID != uuid.Nil && patientID != appt.PatientID {
				return nil, nil, apperr.Validation("appointment %s belongs to another patient", appt.ID)
			}
			patientID = appt.PatientID
			id := appt.ID
			apptID = &id
		case !apperr.IsNotFound(err):
			return nil, nil, err
		case patientID == uuid.Nil:
			return nil, nil, err
		}
	}
	if patientID == uuid.Nil {
		return nil, nil, apperr.Validation("patient_id or appointment_id is required")
	}
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}
	return p, apptID, nil
}

func coverageBalance(p *identity.Patient) *float64 {
	ins := p.PrimaryActiveInsurance()
	if ins == nil {
		return nil
	}
	return ins.Balance
}

func (inv *Invoice) apply(a Allocation) {
	inv.Services = a.Items
	inv.Subtotal = a.Subtotal
	inv.Tax = 0
	inv.Total = inv.Subtotal + inv.Tax
	inv.InsuranceCoverage = a.InsuranceCoverage
	inv.PatientResponsibility = a.PatientResponsibility
}

// Quote prorates line items against the patient's current coverage without
// storing anything.
func (s *Service) Quote(ctx context.Context, in *InvoiceInput) (*Invoice, error) {
	if err := validateLineItems(in.Services); err != nil {
		return nil, err
	}
	p, apptID, err := s.resolvePatient(ctx, in)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{PatientID: p.ID, AppointmentID: apptID, Status: StatusPending, Payments: []Payment{}}
	inv.apply(Prorate(in.Services, coverageBalance(p)))
	return inv, nil
}

// CreateInvoice bills the patient. The insurance balance is read but not
// drawn down, so two invoices can both claim the same balance.
func (s *Service) CreateInvoice(ctx context.Context, in *InvoiceInput) (*Invoice, error) {
	inv, err := s.Quote(ctx, in)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	inv.ID = uuid.New()
	inv.Number = GenerateInvoiceNumber(now)
	inv.Notes = in.Notes
	inv.DueDate = now.AddDate(0, 0, s.dueDays).Format(dateLayout)
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, "invoice.create", "invoices", inv.ID.String(), inv.Number); err != nil {
		s.logger.Warn().Err(err).Str("invoice", inv.Number).Msg("audit record")
	}
	s.publish(ctx, events.InvoiceUpdated, inv.ID, inv)
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, f Filter, limit, offset int) ([]*Invoice, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Validation("invalid status: %s", f.Status)
	}
	return s.invoices.List(ctx, f, limit, offset)
}

// UpdateInvoice replaces the line items and prorates them against the
// patient's balance as it is now, not as it was when the invoice was issued.
func (s *Service) UpdateInvoice(ctx context.Context, id uuid.UUID, items []LineItem, notes *string) (*Invoice, error) {
	if err := validateLineItems(items); err != nil {
		return nil, err
	}
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusCancelled {
		return nil, apperr.Conflict("invoice %s is cancelled", inv.Number)
	}
	p, err := s.patients.GetPatient(ctx, inv.PatientID)
	if err != nil {
		return nil, err
	}
	inv.apply(Prorate(items, coverageBalance(p)))
	if notes != nil {
		inv.Notes = *notes
	}
	if len(inv.Payments) > 0 {
		inv.settle()
	}
	inv.UpdatedAt = s.now().UTC()

	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, "invoice.update", "invoices", inv.ID.String(), inv.Number); err != nil {
		s.logger.Warn().Err(err).Str("invoice", inv.Number).Msg("audit record")
	}
	s.publish(ctx, events.InvoiceUpdated, inv.ID, inv)
	return inv, nil
}

func (s *Service) CancelInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case inv.Status == StatusCancelled:
		return nil, apperr.Conflict("invoice %s is already cancelled", inv.Number)
	case len(inv.Payments) > 0:
		return nil, apperr.Conflict("invoice %s has payments recorded", inv.Number)
	}
	inv.Status = StatusCancelled
	inv.UpdatedAt = s.now().UTC()
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.audit.Record(ctx, "invoice.cancel", "invoices", inv.ID.String(), inv.Number); err != nil {
		s.logger.Warn().Err(err).Str("invoice", inv.Number).Msg("audit record")
	}
	s.publish(ctx, events.InvoiceUpdated, inv.ID, inv)
	return inv, nil
}

// RecordPayment appends a patient payment and settles the invoice to PAID
// or PARTIAL. An OVERDUE invoice moves back to one of those.
func (s *Service) RecordPayment(ctx context.Context, invoiceID uuid.UUID, amount float64, method PaymentMethod, reference string) (*Invoice, *Payment, error) {
	if amount <= 0 {
		return nil, nil, apperr.Validation("amount must be positive")
	}
	if method == "" {
		method = MethodCash
	}
	if !validMethods[method] {
		return nil, nil, apperr.Validation("invalid payment method: %s", method)
	}
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	switch inv.Status {
	case StatusCancelled:
		return nil, nil, apperr.Conflict("invoice %s is cancelled", inv.Number)
	case StatusPaid:
		return nil, nil, apperr.Conflict("invoice %s is already paid", inv.Number)
	}

	now := s.now().UTC()
	pay := Payment{
		ID:         uuid.New(),
		InvoiceID:  inv.ID,
		PatientID:  inv.PatientID,
		Amount:     amount,
		Method:     method,
		Reference:  reference,
		RecordedBy: auth.UserIDFromContext(ctx),
		PaidAt:     now,
	}
	inv.Payments = append(inv.Payments, pay)
	inv.settle()
	inv.UpdatedAt = now

	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, nil, err
	}
	details := fmt.Sprintf("%s %s via %s", inv.Number, FormatAmount(amount), method)
	if err := s.audit.Record(ctx, "payment.record", "invoices", inv.ID.String(), details); err != nil {
		s.logger.Warn().Err(err).Str("invoice", inv.Number).Msg("audit record")
	}
	s.publish(ctx, events.PaymentRecorded, inv.ID, pay)
	s.publish(ctx, events.InvoiceUpdated, inv.ID, inv)
	return inv, &pay, nil
}

// ListPayments returns payments across invoices, newest first.
func (s *Service) ListPayments(ctx context.Context, f PaymentFilter, limit, offset int) ([]Payment, int, error) {
	if f.Method != "" && !validMethods[f.Method] {
		return nil, 0, apperr.Validation("invalid payment method: %s", f.Method)
	}
	invoices, _, err := s.invoices.List(ctx, Filter{PatientID: f.PatientID}, 0, 0)
	if err != nil {
		return nil, 0, err
	}
	var out []Payment
	for _, inv := range invoices {
		for i := range inv.Payments {
			if f.matches(&inv.Payments[i]) {
				out = append(out, inv.Payments[i])
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return pagination.Slice(out, limit, offset), len(out), nil
}

// SweepOverdue marks every open invoice past its due date as OVERDUE and
// returns how many changed.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	flipped, err := s.invoices.MarkOverdue(ctx, now.UTC().Format(dateLayout))
	if err != nil {
		return 0, err
	}
	for _, inv := range flipped {
		if err := s.audit.Record(ctx, "invoice.overdue", "invoices", inv.ID.String(), inv.Number); err != nil {
			s.logger.Warn().Err(err).Str("invoice", inv.Number).Msg("audit overdue invoice")
		}
		s.publish(ctx, events.InvoiceUpdated, inv.ID, inv)
	}
	if len(flipped) > 0 {
		s.logger.Info().Int("count", len(flipped)).Msg("invoices marked overdue")
	}
	return len(flipped), nil
}

// Totals aggregates invoice counts and money across the whole ledger.
type Totals struct {
	ByStatus    map[Status]int `json:"by_status"`
	Billed      float64        `json:"billed"`
	Collected   float64        `json:"collected"`
	Outstanding float64        `json:"outstanding"`
}

func (s *Service) Totals(ctx context.Context) (*Totals, error) {
	invoices, _, err := s.invoices.List(ctx, Filter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	t := &Totals{ByStatus: make(map[Status]int)}
	for _, inv := range invoices {
		t.ByStatus[inv.Status]++
		t.Collected += inv.AmountPaid()
		if inv.Status == StatusCancelled {
			continue
		}
		t.Billed += inv.Total
		if inv.Status.Open() {
			t.Outstanding += inv.AmountDue()
		}
	}
	return t, nil
}

func (s *Service) publish(ctx context.Context, typ string, id uuid.UUID, payload any) {
	evt, err := events.New(typ, events.TopicBilling, "Invoice", id.String(), payload)
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("type", typ).Msg("publish billing event")
	}
}
