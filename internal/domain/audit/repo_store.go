package audit

import (
	"context"
	"sort"

	"github.com/clinicops/clinic/internal/platform/store"
	"github.com/clinicops/clinic/pkg/pagination"
)

type storeRepo struct {
	entries *store.Collection[Entry]
}

func NewStoreRepo(s store.Store) Repository {
	return &storeRepo{entries: store.NewCollection[Entry](s, store.AuditLog)}
}

func (r *storeRepo) Append(ctx context.Context, e *Entry) error {
	return r.entries.Mutate(ctx, func(items []Entry) ([]Entry, error) {
		return append(items, *e), nil
	})
}

// List returns matching entries newest first.
func (r *storeRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	items, err := r.entries.All(ctx)
	if err != nil {
		return nil, 0, err
	}
	var matched []*Entry
	for i := range items {
		if f.matches(&items[i]) {
			matched = append(matched, &items[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return pagination.Slice(matched, limit, offset), len(matched), nil
}
