package clinical

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/store"
	"github.com/clinicops/clinic/pkg/pagination"
)

// -- Treatment Record --

type treatmentRecordRepo struct {
	c *store.Collection[TreatmentRecord]
}

func NewTreatmentRecordRepo(s store.Store) TreatmentRecordRepository {
	return &treatmentRecordRepo{c: store.NewCollection[TreatmentRecord](s, store.TreatmentRecords)}
}

func (r *treatmentRecordRepo) Create(ctx context.Context, rec *TreatmentRecord) error {
	return r.c.Mutate(ctx, func(items []TreatmentRecord) ([]TreatmentRecord, error) {
		return append(items, *rec), nil
	})
}

func (r *treatmentRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentRecord, error) {
	rec, err := r.c.Find(ctx, func(t *TreatmentRecord) bool { return t.ID == id })
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("treatment record", id)
	}
	return rec, nil
}

func (r *treatmentRecordRepo) Update(ctx context.Context, rec *TreatmentRecord) error {
	return r.c.Mutate(ctx, func(items []TreatmentRecord) ([]TreatmentRecord, error) {
		for i := range items {
			if items[i].ID == rec.ID {
				items[i] = *rec
				return items, nil
			}
		}
		return nil, apperr.NotFound("treatment record", rec.ID)
	})
}

// List returns matches newest first.
func (r *treatmentRecordRepo) List(ctx context.Context, f RecordFilter, limit, offset int) ([]*TreatmentRecord, int, error) {
	matched, err := r.c.Filter(ctx, f.matches)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return pagination.Slice(matched, limit, offset), len(matched), nil
}

// -- Diagnostic Test --

type diagnosticTestRepo struct {
	c *store.Collection[DiagnosticTest]
}

func NewDiagnosticTestRepo(s store.Store) DiagnosticTestRepository {
	return &diagnosticTestRepo{c: store.NewCollection[DiagnosticTest](s, store.DiagnosticTests)}
}

func (r *diagnosticTestRepo) Create(ctx context.Context, t *DiagnosticTest) error {
	return r.c.Mutate(ctx, func(items []DiagnosticTest) ([]DiagnosticTest, error) {
		return append(items, *t), nil
	})
}

func (r *diagnosticTestRepo) GetByID(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	t, err := r.c.Find(ctx, func(t *DiagnosticTest) bool { return t.ID == id })
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("diagnostic test", id)
	}
	return t, nil
}

func (r *diagnosticTestRepo) Update(ctx context.Context, t *DiagnosticTest) error {
	return r.c.Mutate(ctx, func(items []DiagnosticTest) ([]DiagnosticTest, error) {
		for i := range items {
			if items[i].ID == t.ID {
				items[i] = *t
				return items, nil
			}
		}
		return nil, apperr.NotFound("diagnostic test", t.ID)
	})
}

// List returns matches newest first.
func (r *diagnosticTestRepo) List(ctx context.Context, f TestFilter, limit, offset int) ([]*DiagnosticTest, int, error) {
	matched, err := r.c.Filter(ctx, f.matches)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].OrderedAt.After(matched[j].OrderedAt) })
	return pagination.Slice(matched, limit, offset), len(matched), nil
}
