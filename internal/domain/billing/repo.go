package billing

import (
	"context"

	"github.com/google/uuid"
)

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Invoice, int, error)
	// MarkOverdue flips open invoices with an amount due and a due date
	// before today to OVERDUE and returns them.
	MarkOverdue(ctx context.Context, today string) ([]*Invoice, error)
}
