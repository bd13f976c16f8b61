package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/domain/billing"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/queue"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
)

type stubPatients int

func (n stubPatients) ListPatients(context.Context, string, int, int) ([]*identity.Patient, int, error) {
	return nil, int(n), nil
}

type stubAppointments []*scheduling.Appointment

func (s stubAppointments) ListAppointments(_ context.Context, f scheduling.Filter, _, _ int) ([]*scheduling.Appointment, int, error) {
	var out []*scheduling.Appointment
	for _, a := range s {
		if a.ScheduledDate == f.Date {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

type stubQueue struct {
	entries []queue.Entry
	err     error
}

func (q stubQueue) List(context.Context) ([]queue.Entry, error) { return q.entries, q.err }

type stubTests int

func (n stubTests) PendingTests(context.Context) (int, error) { return int(n), nil }

type stubBilling struct{}

func (stubBilling) Totals(context.Context) (*billing.Totals, error) {
	return &billing.Totals{ByStatus: map[billing.Status]int{billing.StatusPending: 2}, Collected: 120, Outstanding: 80}, nil
}

func entry(p queue.Priority, st queue.Status, wait int) queue.Entry {
	return queue.Entry{Item: queue.Item{Priority: p, Status: st}, CurrentWaitTime: wait}
}

func newService(q stubQueue) *Service {
	appts := stubAppointments{
		{ScheduledDate: "2024-05-17", Status: scheduling.StatusScheduled},
		{ScheduledDate: "2024-05-17", Status: scheduling.StatusCheckedIn},
		{ScheduledDate: "2024-05-17", Status: scheduling.StatusCheckedIn},
		{ScheduledDate: "2024-05-18", Status: scheduling.StatusScheduled},
	}
	svc := NewService(stubPatients(42), appts, q, stubTests(3), stubBilling{})
	svc.now = func() time.Time { return time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_Summary(t *testing.T) {
	svc := newService(stubQueue{entries: []queue.Entry{
		entry(queue.PriorityCritical, queue.StatusWaiting, 4),
		entry(queue.PriorityNonUrgent, queue.StatusWaiting, 20),
		entry(queue.PriorityNonUrgent, queue.StatusInProgress, 50),
	}})

	sum, err := svc.Summary(context.Background(), "")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Date != "2024-05-17" || sum.PatientsTotal != 42 || sum.TestsPending != 3 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if sum.Appointments.Total != 3 || sum.Appointments.ByStatus[scheduling.StatusCheckedIn] != 2 {
		t.Errorf("unexpected appointment stats %+v", sum.Appointments)
	}
	if sum.Queue.Length != 2 || sum.Queue.ByPriority[queue.PriorityNonUrgent] != 1 || sum.Queue.AverageWaitMin != 12 {
		t.Errorf("unexpected queue stats %+v", sum.Queue)
	}
	if sum.Billing.Outstanding != 80 {
		t.Errorf("unexpected billing totals %+v", sum.Billing)
	}
}

func TestService_Summary_Errors(t *testing.T) {
	if _, err := newService(stubQueue{}).Summary(context.Background(), "17/05/2024"); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	boom := errors.New("store unavailable")
	if _, err := newService(stubQueue{err: boom}).Summary(context.Background(), "2024-05-17"); !errors.Is(err, boom) {
		t.Errorf("expected queue error to surface, got %v", err)
	}
}

func TestHandler_Summary(t *testing.T) {
	e := echo.New()
	NewHandler(newService(stubQueue{})).RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard?date=2024-05-18", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "u1", []string{auth.RoleReceptionist}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"patients_total":42`) || !strings.Contains(rec.Body.String(), `"queue":{"length":0`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
