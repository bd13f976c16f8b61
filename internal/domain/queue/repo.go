package queue

import (
	"context"

	"github.com/google/uuid"
)

type ItemRepository interface {
	Create(ctx context.Context, it *Item) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Item, error)
	Update(ctx context.Context, it *Item) error
	DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID) error
	List(ctx context.Context) ([]Item, error)
}
