package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/store"
	"github.com/clinicops/clinic/pkg/pagination"
)

// -- Patient --

type patientRepo struct {
	c *store.Collection[Patient]
}

func NewPatientRepo(s store.Store) PatientRepository {
	return &patientRepo{c: store.NewCollection[Patient](s, store.Patients)}
}

func (r *patientRepo) Create(ctx context.Context, p *Patient) error {
	return r.c.Mutate(ctx, func(items []Patient) ([]Patient, error) {
		for _, existing := range items {
			if existing.MRN == p.MRN {
				return nil, apperr.Conflict("mrn %s already registered", p.MRN)
			}
		}
		return append(items, *p), nil
	})
}

func (r *patientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := r.c.Find(ctx, func(p *Patient) bool { return p.ID == id })
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("patient", id)
	}
	return p, nil
}

func (r *patientRepo) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	p, err := r.c.Find(ctx, func(p *Patient) bool { return strings.EqualFold(p.MRN, mrn) })
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("patient with mrn", mrn)
	}
	return p, nil
}

func (r *patientRepo) Update(ctx context.Context, p *Patient) error {
	return r.c.Mutate(ctx, func(items []Patient) ([]Patient, error) {
		for i := range items {
			if items[i].ID == p.ID {
				items[i] = *p
				return items, nil
			}
		}
		return nil, apperr.NotFound("patient", p.ID)
	})
}

func (r *patientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.c.Mutate(ctx, func(items []Patient) ([]Patient, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, apperr.NotFound("patient", id)
	})
}

func (r *patientRepo) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	matched, err := r.c.Filter(ctx, func(p *Patient) bool { return p.matches(query) })
	if err != nil {
		return nil, 0, err
	}
	return pagination.Slice(matched, limit, offset), len(matched), nil
}

// -- Practitioner --

type practitionerRepo struct {
	c *store.Collection[Practitioner]
}

func NewPractitionerRepo(s store.Store) PractitionerRepository {
	return &practitionerRepo{c: store.NewCollection[Practitioner](s, store.Practitioners)}
}

func (r *practitionerRepo) Create(ctx context.Context, p *Practitioner) error {
	return r.c.Mutate(ctx, func(items []Practitioner) ([]Practitioner, error) {
		return append(items, *p), nil
	})
}

func (r *practitionerRepo) GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	p, err := r.c.Find(ctx, func(p *Practitioner) bool { return p.ID == id })
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("practitioner", id)
	}
	return p, nil
}

func (r *practitionerRepo) Update(ctx context.Context, p *Practitioner) error {
	return r.c.Mutate(ctx, func(items []Practitioner) ([]Practitioner, error) {
		for i := range items {
			if items[i].ID == p.ID {
				items[i] = *p
				return items, nil
			}
		}
		return nil, apperr.NotFound("practitioner", p.ID)
	})
}

func (r *practitionerRepo) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Practitioner, int, error) {
	matched, err := r.c.Filter(ctx, func(p *Practitioner) bool { return !activeOnly || p.Active })
	if err != nil {
		return nil, 0, err
	}
	return pagination.Slice(matched, limit, offset), len(matched), nil
}

// -- Staff --

type staffRepo struct {
	c *store.Collection[Staff]
}

func NewStaffRepo(s store.Store) StaffRepository {
	return &staffRepo{c: store.NewCollection[Staff](s, store.Staff)}
}

func (r *staffRepo) Create(ctx context.Context, s *Staff) error {
	return r.c.Mutate(ctx, func(items []Staff) ([]Staff, error) {
		for _, existing := range items {
			if strings.EqualFold(existing.Username, s.Username) {
				return nil, apperr.Conflict("username %s already taken", s.Username)
			}
		}
		return append(items, *s), nil
	})
}

func (r *staffRepo) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	s, err := r.c.Find(ctx, func(s *Staff) bool { return s.ID == id })
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperr.NotFound("staff", id)
	}
	return s, nil
}

func (r *staffRepo) GetByUsername(ctx context.Context, username string) (*Staff, error) {
	s, err := r.c.Find(ctx, func(s *Staff) bool { return strings.EqualFold(s.Username, username) })
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperr.NotFound("staff", username)
	}
	return s, nil
}

func (r *staffRepo) List(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	all, err := r.c.Filter(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	return pagination.Slice(all, limit, offset), len(all), nil
}
