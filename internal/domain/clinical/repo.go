package clinical

import (
	"context"

	"github.com/google/uuid"
)

type TreatmentRecordRepository interface {
	Create(ctx context.Context, r *TreatmentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentRecord, error)
	Update(ctx context.Context, r *TreatmentRecord) error
	List(ctx context.Context, f RecordFilter, limit, offset int) ([]*TreatmentRecord, int, error)
}

type DiagnosticTestRepository interface {
	Create(ctx context.Context, t *DiagnosticTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error)
	Update(ctx context.Context, t *DiagnosticTest) error
	List(ctx context.Context, f TestFilter, limit, offset int) ([]*DiagnosticTest, int, error)
}
