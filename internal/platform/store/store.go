// Package store provides the persisted key-value collection store that backs
// every domain service. Each named collection holds the entire JSON-encoded
// list of its records; services read the whole list, mutate it in memory and
// write the whole list back.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Collection names used by the domain services.
const (
	Patients          = "patients"
	Practitioners     = "practitioners"
	Staff             = "staff"
	Appointments      = "appointments"
	Queue             = "queue"
	Invoices          = "invoices"
	TriageAssessments = "triage_assessments"
	Vitals            = "vitals"
	TreatmentRecords  = "treatment_records"
	DiagnosticTests   = "diagnostic_tests"
	AuditLog          = "audit_log"
)

// Store is the persistence interface: load and save a named collection as a
// raw JSON array. Load returns nil data when the collection has never been
// written.
type Store interface {
	Load(ctx context.Context, collection string) ([]byte, error)
	Save(ctx context.Context, collection string, data []byte) error
}

// Collection is a typed view over one named collection in a Store.
//
// Mutate serialises read-modify-write cycles within this process only. Two
// processes sharing a postgres or redis store can still overwrite each
// other's writes; the clinic runs a single writer.
type Collection[T any] struct {
	store Store
	name  string
	mu    sync.Mutex
}

// NewCollection binds a typed collection to a store. Create exactly one
// Collection per name per process so that Mutate calls share a lock.
func NewCollection[T any](s Store, name string) *Collection[T] {
	return &Collection[T]{store: s, name: name}
}

// All loads and decodes the whole collection.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	return c.load(ctx)
}

// Find returns the first item matching match, or nil when none does.
func (c *Collection[T]) Find(ctx context.Context, match func(*T) bool) (*T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if match(&items[i]) {
			return &items[i], nil
		}
	}
	return nil, nil
}

// Filter returns every item matching match, in stored order.
func (c *Collection[T]) Filter(ctx context.Context, match func(*T) bool) ([]*T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(items))
	for i := range items {
		if match == nil || match(&items[i]) {
			out = append(out, &items[i])
		}
	}
	return out, nil
}

// Mutate loads the collection, passes it to fn and saves whatever fn returns.
// If fn returns an error nothing is written.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(items)
	if err != nil {
		return err
	}
	return c.save(ctx, updated)
}

func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	data, err := c.store.Load(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.name, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if err := c.store.Save(ctx, c.name, data); err != nil {
		return fmt.Errorf("save %s: %w", c.name, err)
	}
	return nil
}
