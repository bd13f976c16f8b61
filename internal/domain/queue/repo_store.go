package queue

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/store"
)

type itemRepo struct {
	c *store.Collection[Item]
}

func NewItemRepo(s store.Store) ItemRepository {
	return &itemRepo{c: store.NewCollection[Item](s, store.Queue)}
}

// Create appends it. An appointment can be queued only once.
func (r *itemRepo) Create(ctx context.Context, it *Item) error {
	return r.c.Mutate(ctx, func(items []Item) ([]Item, error) {
		for _, existing := range items {
			if existing.AppointmentID == it.AppointmentID {
				return nil, apperr.Conflict("appointment %s is already queued", it.AppointmentID)
			}
		}
		return append(items, *it), nil
	})
}

func (r *itemRepo) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Item, error) {
	it, err := r.c.Find(ctx, func(it *Item) bool { return it.AppointmentID == appointmentID })
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, apperr.NotFound("queue item for appointment", appointmentID)
	}
	return it, nil
}

func (r *itemRepo) Update(ctx context.Context, it *Item) error {
	return r.c.Mutate(ctx, func(items []Item) ([]Item, error) {
		for i := range items {
			if items[i].ID == it.ID {
				items[i] = *it
				return items, nil
			}
		}
		return nil, apperr.NotFound("queue item", it.ID)
	})
}

// DeleteByAppointment removes the item, preserving the order of the rest.
func (r *itemRepo) DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	return r.c.Mutate(ctx, func(items []Item) ([]Item, error) {
		for i := range items {
			if items[i].AppointmentID == appointmentID {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, apperr.NotFound("queue item for appointment", appointmentID)
	})
}

func (r *itemRepo) List(ctx context.Context) ([]Item, error) {
	return r.c.All(ctx)
}
