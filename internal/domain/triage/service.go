// Package triage records nurse assessments and vital signs and feeds the
// resulting priority into the waiting queue.
package triage

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/queue"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/events"
)

type Appointments interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

type Patients interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

// Prioritizer is the queue operation triage drives.
type Prioritizer interface {
	UpdatePriority(ctx context.Context, appointmentID uuid.UUID, priority queue.Priority) (*queue.Item, error)
}

type Service struct {
	assessments  AssessmentRepository
	vitals       VitalsRepository
	appointments Appointments
	patients     Patients
	queue        Prioritizer
	audit        audit.Recorder
	events       events.Publisher
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(assessments AssessmentRepository, vitals VitalsRepository, appts Appointments, patients Patients,
	q Prioritizer, rec audit.Recorder, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		assessments:  assessments,
		vitals:       vitals,
		appointments: appts,
		patients:     patients,
		queue:        q,
		audit:        rec,
		events:       pub,
		logger:       logger.With().Str("component", "triage").Logger(),
		now:          time.Now,
	}
}

func actor(ctx context.Context, given string) string {
	if given = strings.TrimSpace(given); given != "" {
		return given
	}
	return auth.UserIDFromContext(ctx)
}

// -- Assessment --

// CreateAssessment stores the assessment and re-prioritises the patient's
// queue item. An empty priority is derived from the linked vitals and pain
// score. A failed queue update does not undo the assessment; the mismatch
// is logged.
func (s *Service) CreateAssessment(ctx context.Context, a *Assessment) error {
	if a.AppointmentID == uuid.Nil {
		return apperr.Validation("appointment_id is required")
	}
	if strings.TrimSpace(a.ChiefComplaint) == "" {
		return apperr.Validation("chief_complaint is required")
	}
	if a.PainScale < 0 || a.PainScale > 10 {
		return apperr.Validation("pain_scale must be between 0 and 10")
	}
	a.Priority = queue.Priority(strings.ToUpper(string(a.Priority)))
	if a.Priority != "" && !a.Priority.Valid() {
		return apperr.Validation("invalid priority: %s", a.Priority)
	}

	appt, err := s.appointments.GetAppointment(ctx, a.AppointmentID)
	if err != nil {
		return err
	}
	if a.PatientID != uuid.Nil && a.PatientID != appt.PatientID {
		return apperr.Validation("patient_id does not match the appointment")
	}
	a.PatientID = appt.PatientID

	var v *Vitals
	if a.VitalsID != nil {
		if v, err = s.vitals.GetByID(ctx, *a.VitalsID); err != nil {
			return err
		}
		if v.PatientID != a.PatientID {
			return apperr.Validation("vitals belong to another patient")
		}
	}
	if a.Priority == "" {
		a.Priority = SuggestPriority(v, a.PainScale)
	}

	a.ID = uuid.New()
	a.AssessedBy = actor(ctx, a.AssessedBy)
	a.AssessedAt = s.now().UTC()
	if err := s.assessments.Create(ctx, a); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, "triage.create", "triage_assessments", a.ID.String(), string(a.Priority)); err != nil {
		return err
	}
	s.publish(ctx, a)

	if _, err := s.queue.UpdatePriority(ctx, a.AppointmentID, a.Priority); err != nil {
		level := zerolog.ErrorLevel
		if apperr.IsNotFound(err) {
			level = zerolog.WarnLevel
		}
		s.logger.WithLevel(level).Err(err).
			Str("appointment_id", a.AppointmentID.String()).
			Str("assessment_id", a.ID.String()).
			Msg("triage stored but queue priority not updated")
	}
	return nil
}

func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return s.assessments.GetByID(ctx, id)
}

func (s *Service) ListAssessments(ctx context.Context, f Filter, limit, offset int) ([]*Assessment, int, error) {
	return s.assessments.List(ctx, f, limit, offset)
}

// -- Vitals --

func (s *Service) RecordVitals(ctx context.Context, v *Vitals) error {
	if v.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if err := v.Validate(); err != nil {
		return err
	}
	if _, err := s.patients.GetPatient(ctx, v.PatientID); err != nil {
		return err
	}
	if v.AppointmentID != nil {
		appt, err := s.appointments.GetAppointment(ctx, *v.AppointmentID)
		if err != nil {
			return err
		}
		if appt.PatientID != v.PatientID {
			return apperr.Validation("patient_id does not match the appointment")
		}
	}
	v.ID = uuid.New()
	v.RecordedBy = actor(ctx, v.RecordedBy)
	v.RecordedAt = s.now().UTC()
	if err := s.vitals.Create(ctx, v); err != nil {
		return err
	}
	return s.audit.Record(ctx, "vitals.create", "vitals", v.ID.String(), "")
}

func (s *Service) GetVitals(ctx context.Context, id uuid.UUID) (*Vitals, error) {
	return s.vitals.GetByID(ctx, id)
}

func (s *Service) ListVitals(ctx context.Context, f Filter, limit, offset int) ([]*Vitals, int, error) {
	return s.vitals.List(ctx, f, limit, offset)
}

func (s *Service) publish(ctx context.Context, a *Assessment) {
	evt, err := events.New(events.TriageRecorded, events.TopicTriage, "triage_assessment", a.ID.String(), a)
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("assessment_id", a.ID.String()).Msg("publish triage event")
	}
}
