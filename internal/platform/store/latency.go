package store

import (
	"context"
	"time"
)

// latencyStore delays every call to stand in for a network round trip.
type latencyStore struct {
	next  Store
	delay time.Duration
}

// WithLatency wraps s so every Load and Save waits d before running. A zero
// or negative d returns s unchanged.
func WithLatency(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &latencyStore{next: s, delay: d}
}

func (l *latencyStore) Load(ctx context.Context, collection string) ([]byte, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Load(ctx, collection)
}

func (l *latencyStore) Save(ctx context.Context, collection string, data []byte) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	return l.next.Save(ctx, collection, data)
}

func (l *latencyStore) wait(ctx context.Context) error {
	t := time.NewTimer(l.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
