// Package audit keeps the append-only log of mutating actions.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
)

// Recorder is what other services depend on to write audit entries.
type Recorder interface {
	Record(ctx context.Context, action, resource, resourceID, details string) error
}

// Nop records nothing.
type Nop struct{}

func (Nop) Record(context.Context, string, string, string, string) error { return nil }

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record appends an entry attributed to the user in ctx.
func (s *Service) Record(ctx context.Context, action, resource, resourceID, details string) error {
	if strings.TrimSpace(action) == "" {
		return apperr.Validation("action is required")
	}
	if strings.TrimSpace(resource) == "" {
		return apperr.Validation("resource is required")
	}
	actor := auth.UserIDFromContext(ctx)
	if actor == "" {
		actor = SystemActor
	}
	e := &Entry{
		ID:         uuid.New(),
		Actor:      actor,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		Timestamp:  s.now().UTC(),
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}
