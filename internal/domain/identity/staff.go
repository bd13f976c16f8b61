package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
)

const minPasswordLen = 8

// StaffService owns staff accounts and the login check.
type StaffService struct {
	staff StaffRepository
	audit audit.Recorder
	cost  int
}

func NewStaffService(staff StaffRepository, rec audit.Recorder) *StaffService {
	return &StaffService{staff: staff, audit: rec, cost: bcrypt.DefaultCost}
}

// CreateStaff hashes password and stores a new account.
func (s *StaffService) CreateStaff(ctx context.Context, st *Staff, password string) error {
	st.Username = strings.TrimSpace(st.Username)
	if st.Username == "" {
		return apperr.Validation("username is required")
	}
	if len(password) < minPasswordLen {
		return apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	if len(st.Roles) == 0 {
		return apperr.Validation("at least one role is required")
	}
	for _, r := range st.Roles {
		if !auth.IsValidRole(r) {
			return apperr.Validation("invalid role: %s", r)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	st.ID = uuid.New()
	st.PasswordHash = string(hash)
	st.Active = true
	st.CreatedAt = time.Now().UTC()
	if err := s.staff.Create(ctx, st); err != nil {
		return err
	}
	return s.audit.Record(ctx, "staff.create", "staff", st.ID.String(), st.Username)
}

// Authenticate checks username and password. Unknown users and bad
// passwords produce the same error.
func (s *StaffService) Authenticate(ctx context.Context, username, password string) (*Staff, error) {
	st, err := s.staff.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("invalid username or password")
		}
		return nil, err
	}
	if !st.Active {
		return nil, apperr.Unauthorized("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, apperr.Unauthorized("invalid username or password")
		}
		return nil, err
	}
	return st, nil
}

func (s *StaffService) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *StaffService) ListStaff(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	return s.staff.List(ctx, limit, offset)
}
