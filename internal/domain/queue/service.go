// Package queue keeps the ordered waiting list of checked-in patients and
// projects when each of them will be seen.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/events"
)

// Appointments is the part of the scheduling service the queue drives.
type Appointments interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*scheduling.Appointment, error)
	CheckIn(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	Start(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

type Practitioners interface {
	GetPractitioner(ctx context.Context, id uuid.UUID) (*identity.Practitioner, error)
}

type Service struct {
	items         ItemRepository
	appointments  Appointments
	practitioners Practitioners
	audit         audit.Recorder
	events        events.Publisher
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(items ItemRepository, appts Appointments, practitioners Practitioners, rec audit.Recorder, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		items:         items,
		appointments:  appts,
		practitioners: practitioners,
		audit:         rec,
		events:        pub,
		logger:        logger.With().Str("component", "queue").Logger(),
		now:           time.Now,
	}
}

func normalizePriority(p Priority) (Priority, error) {
	if p == "" {
		return PriorityNonUrgent, nil
	}
	if !p.Valid() {
		return "", apperr.Validation("invalid priority: %s", p)
	}
	return p, nil
}

// Add queues the appointment's patient under its practitioner. The
// check-in time is the appointment's recorded check-in, or now.
func (s *Service) Add(ctx context.Context, appointmentID uuid.UUID, priority Priority) (*Item, error) {
	priority, err := normalizePriority(priority)
	if err != nil {
		return nil, err
	}
	appt, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, apperr.Conflict("appointment is %s", appt.Status)
	}

	it := &Item{
		ID:                uuid.New(),
		PatientID:         appt.PatientID,
		AppointmentID:     appt.ID,
		Priority:          priority,
		Status:            StatusWaiting,
		CheckInTime:       s.now().UTC(),
		EstimatedWaitTime: priority.BaseWait(),
	}
	if appt.CheckInTime != nil {
		it.CheckInTime = *appt.CheckInTime
	}
	if appt.PractitionerID != uuid.Nil {
		pid := appt.PractitionerID
		it.AssignedPractitioner = &pid
	}
	if err := s.items.Create(ctx, it); err != nil {
		return nil, err
	}
	s.publish(ctx)
	s.record(ctx, "queue.add", appointmentID, string(priority))
	return it, nil
}

// UpdatePriority re-prioritises the item queued for appointmentID. The
// base wait estimate follows the new priority.
func (s *Service) UpdatePriority(ctx context.Context, appointmentID uuid.UUID, priority Priority) (*Item, error) {
	if !priority.Valid() {
		return nil, apperr.Validation("invalid priority: %s", priority)
	}
	it, err := s.items.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	it.Priority = priority
	it.EstimatedWaitTime = priority.BaseWait()
	if err := s.items.Update(ctx, it); err != nil {
		return nil, err
	}
	s.publish(ctx)
	s.record(ctx, "queue.update_priority", appointmentID, string(priority))
	return it, nil
}

func (s *Service) Remove(ctx context.Context, appointmentID uuid.UUID) error {
	if err := s.items.DeleteByAppointment(ctx, appointmentID); err != nil {
		return err
	}
	s.publish(ctx)
	s.record(ctx, "queue.remove", appointmentID, "")
	return nil
}

// Release drops the item queued for appointmentID once the appointment has
// ended outside the queue (cancelled, no-show, completed). An appointment
// that was never queued is not an error.
func (s *Service) Release(ctx context.Context, appointmentID uuid.UUID) error {
	if err := s.items.DeleteByAppointment(ctx, appointmentID); err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}
	s.publish(ctx)
	s.record(ctx, "queue.release", appointmentID, "")
	return nil
}

// List returns the queue in seen-first order with positions, current waits
// and estimated appointment times computed against the current clock.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].AppointmentID
	}
	appts, err := s.appointments.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	names, err := s.practitionerNames(ctx, items)
	if err != nil {
		return nil, err
	}
	return Project(s.now().UTC(), items, appts, names), nil
}

func (s *Service) practitionerNames(ctx context.Context, items []Item) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string)
	for _, it := range items {
		if it.AssignedPractitioner == nil {
			continue
		}
		id := *it.AssignedPractitioner
		if _, done := names[id]; done {
			continue
		}
		p, err := s.practitioners.GetPractitioner(ctx, id)
		if err != nil {
			if apperr.IsNotFound(err) {
				names[id] = ""
				continue
			}
			return nil, err
		}
		names[id] = p.DisplayName()
	}
	return names, nil
}

// CheckIn records the patient's arrival on the appointment and queues them.
// The two writes are not atomic: if queueing fails the appointment stays
// checked in and the divergence is logged.
func (s *Service) CheckIn(ctx context.Context, appointmentID uuid.UUID, priority Priority) (*Item, error) {
	if _, err := normalizePriority(priority); err != nil {
		return nil, err
	}
	if _, err := s.appointments.CheckIn(ctx, appointmentID); err != nil {
		return nil, err
	}
	it, err := s.Add(ctx, appointmentID, priority)
	if err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", appointmentID.String()).
			Msg("appointment checked in but not queued")
		return nil, err
	}
	return it, nil
}

// CallNext moves the first waiting patient of practitionerID into the
// consultation and starts their appointment.
func (s *Service) CallNext(ctx context.Context, practitionerID uuid.UUID) (*Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, err
	}
	Sort(items)
	var mine []*Item
	var ids []uuid.UUID
	for i := range items {
		it := &items[i]
		if it.Status == StatusWaiting && it.AssignedPractitioner != nil && *it.AssignedPractitioner == practitionerID {
			mine = append(mine, it)
			ids = append(ids, it.AppointmentID)
		}
	}
	appts, err := s.appointments.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	var next *Item
	for _, it := range mine {
		if a, ok := appts[it.AppointmentID]; ok && a.Status.Terminal() {
			s.logger.Warn().
				Str("appointment_id", it.AppointmentID.String()).
				Str("status", string(a.Status)).
				Msg("dropping queue item for ended appointment")
			if err := s.Release(ctx, it.AppointmentID); err != nil {
				return nil, err
			}
			continue
		}
		next = it
		break
	}
	if next == nil {
		return nil, apperr.NotFound("waiting patient for practitioner", practitionerID)
	}

	if _, err := s.appointments.Start(ctx, next.AppointmentID); err != nil {
		return nil, err
	}
	next.Status = StatusInProgress
	if err := s.items.Update(ctx, next); err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", next.AppointmentID.String()).
			Msg("appointment started but queue item not updated")
		return nil, err
	}
	s.publish(ctx)
	s.record(ctx, "queue.call_next", next.AppointmentID, practitionerID.String())
	return next, nil
}

// Complete finishes the appointment and drops it from the queue.
func (s *Service) Complete(ctx context.Context, appointmentID uuid.UUID) error {
	if _, err := s.items.GetByAppointment(ctx, appointmentID); err != nil {
		return err
	}
	if _, err := s.appointments.Complete(ctx, appointmentID); err != nil {
		return err
	}
	// The terminal hook on the appointment normally removes the item already.
	if err := s.items.DeleteByAppointment(ctx, appointmentID); err != nil && !apperr.IsNotFound(err) {
		s.logger.Error().Err(err).
			Str("appointment_id", appointmentID.String()).
			Msg("appointment completed but queue item not removed")
		return err
	}
	s.publish(ctx)
	s.record(ctx, "queue.complete", appointmentID, "")
	return nil
}

// Snapshot is the current board as a queue.updated event.
func (s *Service) Snapshot(ctx context.Context) (events.Event, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return events.Event{}, err
	}
	return events.New(events.QueueUpdated, events.TopicQueue, "queue", "", entries)
}

// record writes an audit entry for a change that has already been saved, so
// a failure is logged rather than returned.
func (s *Service) record(ctx context.Context, action string, appointmentID uuid.UUID, details string) {
	if err := s.audit.Record(ctx, action, "queue", appointmentID.String(), details); err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", appointmentID.String()).
			Str("action", action).
			Msg("audit record")
	}
}

func (s *Service) publish(ctx context.Context) {
	evt, err := s.Snapshot(ctx)
	if err == nil {
		err = s.events.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("publish queue snapshot")
	}
}
