package billing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/store"
	"github.com/clinicops/clinic/pkg/pagination"
)

type invoiceRepo struct {
	c   *store.Collection[Invoice]
	now func() time.Time
}

func NewInvoiceRepo(s store.Store) InvoiceRepository {
	return &invoiceRepo{c: store.NewCollection[Invoice](s, store.Invoices), now: time.Now}
}

func (r *invoiceRepo) Create(ctx context.Context, inv *Invoice) error {
	return r.c.Mutate(ctx, func(items []Invoice) ([]Invoice, error) {
		for i := range items {
			if items[i].Number == inv.Number {
				return nil, apperr.Conflict("invoice number %s already exists", inv.Number)
			}
		}
		return append(items, *inv), nil
	})
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := r.c.Find(ctx, func(inv *Invoice) bool { return inv.ID == id })
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFound("invoice", id)
	}
	return inv, nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *Invoice) error {
	return r.c.Mutate(ctx, func(items []Invoice) ([]Invoice, error) {
		for i := range items {
			if items[i].ID == inv.ID {
				items[i] = *inv
				return items, nil
			}
		}
		return nil, apperr.NotFound("invoice", inv.ID)
	})
}

// List returns matches newest first.
func (r *invoiceRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*Invoice, int, error) {
	matched, err := r.c.Filter(ctx, f.matches)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return pagination.Slice(matched, limit, offset), len(matched), nil
}

func (r *invoiceRepo) MarkOverdue(ctx context.Context, today string) ([]*Invoice, error) {
	var flipped []*Invoice
	err := r.c.Mutate(ctx, func(items []Invoice) ([]Invoice, error) {
		now := r.now().UTC()
		for i := range items {
			inv := &items[i]
			if inv.Status != StatusPending && inv.Status != StatusPartial {
				continue
			}
			if inv.DueDate == "" || inv.DueDate >= today || inv.AmountDue() <= 0 {
				continue
			}
			inv.Status = StatusOverdue
			inv.UpdatedAt = now
			cp := *inv
			flipped = append(flipped, &cp)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return flipped, nil
}
