package triage

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/store"
	"github.com/clinicops/clinic/pkg/pagination"
)

// -- Assessment --

type assessmentRepo struct {
	c *store.Collection[Assessment]
}

func NewAssessmentRepo(s store.Store) AssessmentRepository {
	return &assessmentRepo{c: store.NewCollection[Assessment](s, store.TriageAssessments)}
}

func (r *assessmentRepo) Create(ctx context.Context, a *Assessment) error {
	return r.c.Mutate(ctx, func(items []Assessment) ([]Assessment, error) {
		return append(items, *a), nil
	})
}

func (r *assessmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	a, err := r.c.Find(ctx, func(a *Assessment) bool { return a.ID == id })
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("triage assessment", id)
	}
	return a, nil
}

// List returns matches newest first.
func (r *assessmentRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*Assessment, int, error) {
	matched, err := r.c.Filter(ctx, f.matchAssessment)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].AssessedAt.After(matched[j].AssessedAt) })
	return pagination.Slice(matched, limit, offset), len(matched), nil
}

// -- Vitals --

type vitalsRepo struct {
	c *store.Collection[Vitals]
}

func NewVitalsRepo(s store.Store) VitalsRepository {
	return &vitalsRepo{c: store.NewCollection[Vitals](s, store.Vitals)}
}

func (r *vitalsRepo) Create(ctx context.Context, v *Vitals) error {
	return r.c.Mutate(ctx, func(items []Vitals) ([]Vitals, error) {
		return append(items, *v), nil
	})
}

func (r *vitalsRepo) GetByID(ctx context.Context, id uuid.UUID) (*Vitals, error) {
	v, err := r.c.Find(ctx, func(v *Vitals) bool { return v.ID == id })
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.NotFound("vitals", id)
	}
	return v, nil
}

// List returns matches newest first.
func (r *vitalsRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*Vitals, int, error) {
	matched, err := r.c.Filter(ctx, f.matchVitals)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].RecordedAt.After(matched[j].RecordedAt) })
	return pagination.Slice(matched, limit, offset), len(matched), nil
}
