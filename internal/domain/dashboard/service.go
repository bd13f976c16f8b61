// Package dashboard summarises the clinic's day for the front desk and
// management.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clinicops/clinic/internal/domain/billing"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/queue"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
)

type Patients interface {
	ListPatients(ctx context.Context, query string, limit, offset int) ([]*identity.Patient, int, error)
}

type Appointments interface {
	ListAppointments(ctx context.Context, f scheduling.Filter, limit, offset int) ([]*scheduling.Appointment, int, error)
}

type Queue interface {
	List(ctx context.Context) ([]queue.Entry, error)
}

type Tests interface {
	PendingTests(ctx context.Context) (int, error)
}

type Billing interface {
	Totals(ctx context.Context) (*billing.Totals, error)
}

type AppointmentStats struct {
	Total    int                       `json:"total"`
	ByStatus map[scheduling.Status]int `json:"by_status"`
}

type QueueStats struct {
	Length         int                    `json:"length"`
	ByPriority     map[queue.Priority]int `json:"by_priority"`
	AverageWaitMin float64                `json:"average_wait_minutes"`
}

type Summary struct {
	Date          string           `json:"date"`
	PatientsTotal int              `json:"patients_total"`
	Appointments  AppointmentStats `json:"appointments"`
	Queue         QueueStats       `json:"queue"`
	TestsPending  int              `json:"tests_pending"`
	Billing       *billing.Totals  `json:"billing"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

type Service struct {
	patients     Patients
	appointments Appointments
	queue        Queue
	tests        Tests
	billing      Billing
	now          func() time.Time
}

func NewService(patients Patients, appts Appointments, q Queue, tests Tests, b Billing) *Service {
	return &Service{patients: patients, appointments: appts, queue: q, tests: tests, billing: b, now: time.Now}
}

// Summary gathers the figures for date (YYYY-MM-DD, today when empty). The
// sources are read concurrently.
func (s *Service) Summary(ctx context.Context, date string) (*Summary, error) {
	if date == "" {
		date = s.now().Format(scheduling.DateLayout)
	}
	if _, err := time.Parse(scheduling.DateLayout, date); err != nil {
		return nil, apperr.Validation("date must be YYYY-MM-DD")
	}

	sum := &Summary{Date: date, GeneratedAt: s.now().UTC()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, total, err := s.patients.ListPatients(ctx, "", 1, 0)
		sum.PatientsTotal = total
		return err
	})
	g.Go(func() error {
		appts, total, err := s.appointments.ListAppointments(ctx, scheduling.Filter{Date: date}, 0, 0)
		if err != nil {
			return err
		}
		sum.Appointments = AppointmentStats{Total: total, ByStatus: make(map[scheduling.Status]int)}
		for _, a := range appts {
			sum.Appointments.ByStatus[a.Status]++
		}
		return nil
	})
	g.Go(func() error {
		entries, err := s.queue.List(ctx)
		if err != nil {
			return err
		}
		sum.Queue = queueStats(entries)
		return nil
	})
	g.Go(func() error {
		n, err := s.tests.PendingTests(ctx)
		sum.TestsPending = n
		return err
	})
	g.Go(func() error {
		t, err := s.billing.Totals(ctx)
		sum.Billing = t
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sum, nil
}

// queueStats counts waiting entries only; the average is over their current
// wait.
func queueStats(entries []queue.Entry) QueueStats {
	qs := QueueStats{ByPriority: make(map[queue.Priority]int)}
	var wait int
	for _, e := range entries {
		if e.Status != queue.StatusWaiting {
			continue
		}
		qs.Length++
		qs.ByPriority[e.Priority]++
		wait += e.CurrentWaitTime
	}
	if qs.Length > 0 {
		qs.AverageWaitMin = float64(wait) / float64(qs.Length)
	}
	return qs
}
