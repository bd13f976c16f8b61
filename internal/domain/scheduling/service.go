// Package scheduling books appointments and drives them through their
// visit lifecycle.
package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/events"
)

// Directory resolves the patient and practitioner an appointment refers to.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetPractitioner(ctx context.Context, id uuid.UUID) (*identity.Practitioner, error)
}

// TerminalHook runs after an appointment reaches a terminal status.
type TerminalHook func(ctx context.Context, appointmentID uuid.UUID) error

type Service struct {
	appointments AppointmentRepository
	directory    Directory
	audit        audit.Recorder
	events       events.Publisher
	logger       zerolog.Logger
	now          func() time.Time
	onTerminal   []TerminalHook
}

func NewService(appts AppointmentRepository, dir Directory, rec audit.Recorder, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appts,
		directory:    dir,
		audit:        rec,
		events:       pub,
		logger:       logger.With().Str("component", "scheduling").Logger(),
		now:          time.Now,
	}
}

func validateAppointment(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if a.PractitionerID == uuid.Nil {
		return apperr.Validation("practitioner_id is required")
	}
	if _, err := time.Parse(DateLayout, a.ScheduledDate); err != nil {
		return apperr.Validation("scheduled_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(TimeLayout, a.ScheduledTime); err != nil {
		return apperr.Validation("scheduled_time must be HH:MM")
	}
	if a.Duration == 0 {
		a.Duration = DefaultDuration
	}
	if a.Duration < 0 || a.Duration > maxDuration {
		return apperr.Validation("duration must be between 1 and %d minutes", maxDuration)
	}
	if a.Type == "" {
		a.Type = TypeConsultation
	}
	a.Type = Type(strings.ToUpper(string(a.Type)))
	if !validTypes[a.Type] {
		return apperr.Validation("invalid appointment type: %s", a.Type)
	}
	return nil
}

func (s *Service) checkReferences(ctx context.Context, a *Appointment) error {
	if _, err := s.directory.GetPatient(ctx, a.PatientID); err != nil {
		return err
	}
	pr, err := s.directory.GetPractitioner(ctx, a.PractitionerID)
	if err != nil {
		return err
	}
	if !pr.Active {
		return apperr.Validation("practitioner %s is not active", pr.DisplayName())
	}
	return nil
}

// Schedule books a new appointment. A booking that overlaps another active
// appointment of the same practitioner fails with a conflict.
func (s *Service) Schedule(ctx context.Context, a *Appointment) error {
	if err := validateAppointment(a); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return apperr.Validation("new appointments must be SCHEDULED or CONFIRMED")
	}
	if err := s.checkReferences(ctx, a); err != nil {
		return err
	}
	now := s.now().UTC()
	a.ID = uuid.New()
	a.CheckInTime = nil
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.appointments.Create(ctx, a); err != nil {
		return err
	}
	s.publish(ctx, a)
	return s.audit.Record(ctx, "appointment.create", "appointments", a.ID.String(), a.ScheduledDate+" "+a.ScheduledTime)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Validation("invalid status: %s", f.Status)
	}
	return s.appointments.List(ctx, f, limit, offset)
}

// UpdateAppointment reschedules or edits an open appointment. Status and
// check-in time only change through the lifecycle operations.
func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) error {
	existing, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if existing.Status.Terminal() {
		return apperr.Conflict("appointment is %s", existing.Status)
	}
	if err := validateAppointment(a); err != nil {
		return err
	}
	if a.PatientID != existing.PatientID || a.PractitionerID != existing.PractitionerID {
		if err := s.checkReferences(ctx, a); err != nil {
			return err
		}
	}
	a.Status = existing.Status
	a.CheckInTime = existing.CheckInTime
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = s.now().UTC()
	if err := s.appointments.Update(ctx, a); err != nil {
		return err
	}
	s.publish(ctx, a)
	return s.audit.Record(ctx, "appointment.update", "appointments", a.ID.String(), "")
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, next Status, action string, mutate func(a *Appointment)) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(next) {
		return nil, apperr.Conflict("cannot move appointment from %s to %s", a.Status, next)
	}
	a.Status = next
	a.UpdatedAt = s.now().UTC()
	if mutate != nil {
		mutate(a)
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	s.publish(ctx, a)
	if err := s.audit.Record(ctx, action, "appointments", a.ID.String(), string(next)); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Str("action", action).Msg("audit record")
	}
	if next.Terminal() {
		for _, fn := range s.onTerminal {
			if err := fn(ctx, a.ID); err != nil {
				s.logger.Error().Err(err).
					Str("appointment_id", a.ID.String()).
					Str("status", string(next)).
					Msg("terminal hook failed")
			}
		}
	}
	return a, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, "appointment.confirm", nil)
}

// OnTerminal registers fn to run whenever an appointment is completed,
// cancelled or marked as a no-show. Hook failures are logged; the status
// change itself has already been saved.
func (s *Service) OnTerminal(fn TerminalHook) {
	s.onTerminal = append(s.onTerminal, fn)
}

// Cancel cancels an open appointment; a non-empty reason is appended to notes.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, "appointment.cancel", func(a *Appointment) {
		if reason = strings.TrimSpace(reason); reason != "" {
			if a.Notes != "" {
				a.Notes += "\n"
			}
			a.Notes += "Cancelled: " + reason
		}
	})
}

// CheckIn marks the patient as arrived and stamps the check-in time.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCheckedIn, "appointment.check_in", func(a *Appointment) {
		t := a.UpdatedAt
		a.CheckInTime = &t
	})
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusInProgress, "appointment.start", nil)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, "appointment.complete", nil)
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow, "appointment.no_show", nil)
}

func (s *Service) publish(ctx context.Context, a *Appointment) {
	evt, err := events.New(events.AppointmentChange, events.TopicSchedule, "appointment", a.ID.String(), a)
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("publish appointment event")
	}
}

// Lookup returns the appointments among ids that exist, keyed by id. Missing
// ids are absent from the map.
func (s *Service) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Appointment, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	all, _, err := s.appointments.List(ctx, Filter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]*Appointment, len(ids))
	for _, a := range all {
		if want[a.ID] {
			found[a.ID] = a
		}
	}
	return found, nil
}
