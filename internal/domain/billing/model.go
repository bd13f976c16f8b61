package billing

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPartial   Status = "PARTIAL"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

var validStatuses = map[Status]bool{
	StatusPending: true, StatusPartial: true, StatusPaid: true, StatusOverdue: true, StatusCancelled: true,
}

func (s Status) Valid() bool { return validStatuses[s] }

// Open reports whether the invoice still expects a patient payment.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusPartial || s == StatusOverdue
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCard         PaymentMethod = "CARD"
	MethodInsurance    PaymentMethod = "INSURANCE"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

var validMethods = map[PaymentMethod]bool{
	MethodCash: true, MethodCard: true, MethodInsurance: true, MethodBankTransfer: true,
}

const dateLayout = "2006-01-02"

// LineItem is one billed service. TotalPrice, InsuranceCovered and
// PatientPortion are computed by Prorate.
type LineItem struct {
	ServiceID        string  `json:"service_id,omitempty"`
	Description      string  `json:"description"`
	Quantity         int     `json:"quantity"`
	UnitPrice        float64 `json:"unit_price"`
	TotalPrice       float64 `json:"total_price"`
	InsuranceCovered float64 `json:"insurance_covered"`
	PatientPortion   float64 `json:"patient_portion"`
}

type Payment struct {
	ID         uuid.UUID     `json:"id"`
	InvoiceID  uuid.UUID     `json:"invoice_id"`
	PatientID  uuid.UUID     `json:"patient_id"`
	Amount     float64       `json:"amount"`
	Method     PaymentMethod `json:"method"`
	Reference  string        `json:"reference,omitempty"`
	RecordedBy string        `json:"recorded_by,omitempty"`
	PaidAt     time.Time     `json:"paid_at"`
}

type Invoice struct {
	ID                    uuid.UUID  `json:"id"`
	Number                string     `json:"number"`
	PatientID             uuid.UUID  `json:"patient_id"`
	AppointmentID         *uuid.UUID `json:"appointment_id,omitempty"`
	Services              []LineItem `json:"services"`
	Subtotal              float64    `json:"subtotal"`
	Tax                   float64    `json:"tax"`
	Total                 float64    `json:"total"`
	InsuranceCoverage     float64    `json:"insurance_coverage"`
	PatientResponsibility float64    `json:"patient_responsibility"`
	Status                Status     `json:"status"`
	Payments              []Payment  `json:"payments"`
	DueDate               string     `json:"due_date"`
	Notes                 string     `json:"notes,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (inv *Invoice) AmountPaid() float64 {
	var sum float64
	for _, p := range inv.Payments {
		sum += p.Amount
	}
	return sum
}

// halfCent is the tolerance for comparing unrounded amounts against what
// was displayed and paid in cents.
const halfCent = 0.005

// AmountDue is the unpaid part of the patient's responsibility. Anything
// below half a cent counts as nothing due.
func (inv *Invoice) AmountDue() float64 {
	if due := inv.PatientResponsibility - inv.AmountPaid(); due >= halfCent {
		return due
	}
	return 0
}

// settle moves the status to PAID or PARTIAL from the payments on file.
// Invoices without payments keep their status.
func (inv *Invoice) settle() {
	paid := inv.AmountPaid()
	switch {
	case paid <= 0:
		return
	case inv.AmountDue() == 0:
		inv.Status = StatusPaid
	default:
		inv.Status = StatusPartial
	}
}

type Filter struct {
	PatientID uuid.UUID
	Status    Status
}

func (f Filter) matches(inv *Invoice) bool {
	if f.PatientID != uuid.Nil && inv.PatientID != f.PatientID {
		return false
	}
	return f.Status == "" || inv.Status == f.Status
}

type PaymentFilter struct {
	PatientID uuid.UUID
	InvoiceID uuid.UUID
	Method    PaymentMethod
}

func (f PaymentFilter) matches(p *Payment) bool {
	if f.PatientID != uuid.Nil && p.PatientID != f.PatientID {
		return false
	}
	if f.InvoiceID != uuid.Nil && p.InvoiceID != f.InvoiceID {
		return false
	}
	return f.Method == "" || p.Method == f.Method
}
