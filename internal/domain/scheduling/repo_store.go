package scheduling

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/store"
	"github.com/clinicops/clinic/pkg/pagination"
)

type appointmentRepo struct {
	c *store.Collection[Appointment]
}

func NewAppointmentRepo(s store.Store) AppointmentRepository {
	return &appointmentRepo{c: store.NewCollection[Appointment](s, store.Appointments)}
}

func checkOverlap(items []Appointment, a *Appointment) error {
	for i := range items {
		if items[i].Overlaps(a) {
			return apperr.Conflict("practitioner already booked at %s %s", items[i].ScheduledDate, items[i].ScheduledTime)
		}
	}
	return nil
}

// Create stores a and rejects a booking that overlaps another active
// appointment of the same practitioner.
func (r *appointmentRepo) Create(ctx context.Context, a *Appointment) error {
	return r.c.Mutate(ctx, func(items []Appointment) ([]Appointment, error) {
		if err := checkOverlap(items, a); err != nil {
			return nil, err
		}
		return append(items, *a), nil
	})
}

func (r *appointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.c.Find(ctx, func(a *Appointment) bool { return a.ID == id })
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("appointment", id)
	}
	return a, nil
}

func (r *appointmentRepo) Update(ctx context.Context, a *Appointment) error {
	return r.c.Mutate(ctx, func(items []Appointment) ([]Appointment, error) {
		for i := range items {
			if items[i].ID == a.ID {
				if err := checkOverlap(items, a); err != nil {
					return nil, err
				}
				items[i] = *a
				return items, nil
			}
		}
		return nil, apperr.NotFound("appointment", a.ID)
	})
}

// List returns matches ordered by scheduled date and time.
func (r *appointmentRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	matched, err := r.c.Filter(ctx, f.matches)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].ScheduledDate != matched[j].ScheduledDate {
			return matched[i].ScheduledDate < matched[j].ScheduledDate
		}
		return matched[i].ScheduledTime < matched[j].ScheduledTime
	})
	return pagination.Slice(matched, limit, offset), len(matched), nil
}
