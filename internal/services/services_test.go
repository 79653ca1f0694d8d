package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"consultcrm/internal/amqp"
	"consultcrm/internal/core"
	"consultcrm/internal/finance"
	"consultcrm/internal/ledger"
	"consultcrm/internal/ledger/memory"
)

var (
	errUpstream = errors.New("upstream down")
	now         = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	alerts []*amqp.HealthAlert
	err    error
}

func (p *fakePublisher) PublishLedgerEvent(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) PublishHealthAlert(_ context.Context, a *amqp.HealthAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, a)
	return p.err
}

type fakeExporter struct {
	snapshots []finance.HealthSnapshot
	err       error
}

func (e *fakeExporter) ExportSnapshot(_ context.Context, s finance.HealthSnapshot) error {
	e.snapshots = append(e.snapshots, s)
	return e.err
}

// brokenStore fails every liability read.
type brokenStore struct {
	*memory.Store
}

func (brokenStore) ListLiabilities(context.Context) ([]core.Liability, error) {
	return nil, errUpstream
}

func seededStore(payment string) *memory.Store {
	s := memory.New()
	s.Seed(
		[]core.Transaction{
			{Type: core.Income, Amount: dec("2000"), Date: now.AddDate(0, 0, -8), Status: core.Paid, ClientID: "c1"},
			{Type: core.Expense, Amount: dec("300"), Date: now.AddDate(0, 0, -5), Status: core.Paid, SubType: core.BusinessFixed},
		},
		[]core.Liability{{Name: "Loan", MonthlyPayment: dec(payment), DueDay: 15, Status: core.UpToDate}},
		[]core.Contact{{ID: "c1", Name: "Acme", Kind: core.Client}},
	)
	return s
}

func TestFinanceService(t *testing.T) {
	fs := NewFinanceService(seededStore("500"))
	ctx := context.Background()

	m, err := fs.Metrics(ctx, now)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if !m.ExpectedCash.Equal(dec("1700")) || !m.TotalCommitments.Equal(dec("500")) {
		t.Errorf("unexpected metrics: cash %s, commitments %s", m.ExpectedCash, m.TotalCommitments)
	}

	points, err := fs.Forecast(ctx, now, 7)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(points) != 8 || !points[7].Balance.Equal(dec("1200")) {
		t.Errorf("unexpected forecast: %+v", points)
	}

	a, err := fs.Analytics(ctx, finance.AnalyticsQuery{ReferenceDate: now})
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if len(a.Breakdown) != 1 || a.Breakdown[0].Name != "Acme" {
		t.Errorf("unexpected breakdown: %+v", a.Breakdown)
	}
}

func TestFinanceService_ReadFailure(t *testing.T) {
	fs := NewFinanceService(brokenStore{seededStore("500")})

	if _, err := fs.Metrics(context.Background(), now); !errors.Is(err, errUpstream) {
		t.Errorf("Metrics error = %v, want upstream failure", err)
	}
	if _, err := fs.Forecast(context.Background(), now, 30); !errors.Is(err, errUpstream) {
		t.Errorf("Forecast error = %v, want upstream failure", err)
	}
	// Analytics does not read liabilities.
	if _, err := fs.Analytics(context.Background(), finance.AnalyticsQuery{ReferenceDate: now}); err != nil {
		t.Errorf("Analytics error = %v", err)
	}
}

func TestLedgerService_PublishesAfterWrite(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.New(), pub)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, core.Transaction{Type: core.Expense, Amount: dec("10"), Date: now, Status: core.Pending})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	created.Status = core.Paid
	if _, err := svc.UpdateTransaction(ctx, created); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := svc.CreateContact(ctx, core.Contact{Name: "Lead Co", Kind: core.Lead}); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	want := []amqp.Action{amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionDeleted, amqp.ActionCreated}
	if len(pub.events) != len(want) {
		t.Fatalf("published %d events, want %d", len(pub.events), len(want))
	}
	for i, a := range want {
		if pub.events[i].Action != a {
			t.Errorf("event %d action = %s, want %s", i, pub.events[i].Action, a)
		}
	}
	if pub.events[0].ID != created.ID || pub.events[3].Entity != amqp.EntityContact {
		t.Errorf("unexpected events: %+v %+v", pub.events[0], pub.events[3])
	}
}

func TestLedgerService_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		pub := &fakePublisher{err: amqp.ErrCircuitOpen}
		svc := NewLedgerService(memory.New(), pub)

		l, err := svc.CreateLiability(ctx, core.Liability{Name: "Rent", MonthlyPayment: dec("700"), DueDay: 1, Status: core.UpToDate})
		if err != nil {
			t.Fatalf("CreateLiability: %v", err)
		}
		liabs, _ := svc.ListLiabilities(ctx)
		if len(liabs) != 1 || liabs[0].ID != l.ID {
			t.Errorf("liability not stored: %+v", liabs)
		}
	})

	t.Run("rejected write publishes nothing", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := NewLedgerService(memory.New(), pub)

		_, err := svc.CreateTransaction(ctx, core.Transaction{Type: "REFUND", Amount: dec("1"), Date: now, Status: core.Paid})
		if !errors.Is(err, core.ErrInvalidType) {
			t.Errorf("error = %v, want ErrInvalidType", err)
		}
		if err := svc.DeleteLiability(ctx, "missing"); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
		if len(pub.events) != 0 {
			t.Errorf("published %d events for failed writes", len(pub.events))
		}
	})

	t.Run("nil publisher", func(t *testing.T) {
		svc := NewLedgerService(memory.New(), nil)
		if _, err := svc.CreateContact(ctx, core.Contact{Name: "Acme", Kind: core.Client}); err != nil {
			t.Fatalf("CreateContact: %v", err)
		}
		if err := svc.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
}

func newMonitor(store LedgerReader, pub AlertPublisher, exp SnapshotExporter) *HealthMonitor {
	m := NewHealthMonitor(NewFinanceService(store), pub, exp, 30)
	m.now = func() time.Time { return now }
	return m
}

func TestHealthMonitor_Check(t *testing.T) {
	tests := []struct {
		name       string
		payment    string
		wantStatus finance.HealthStatus
		wantAlerts int
	}{
		{"healthy ledger raises nothing", "500", finance.Healthy, 0},
		{"critical ledger raises an alert", "1800", finance.Critical, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, exp := &fakePublisher{}, &fakeExporter{}
			snap, err := newMonitor(seededStore(tt.payment), pub, exp).Check(context.Background())
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if snap.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", snap.Status, tt.wantStatus)
			}
			if len(pub.alerts) != tt.wantAlerts {
				t.Fatalf("alerts = %d, want %d", len(pub.alerts), tt.wantAlerts)
			}
			if len(exp.snapshots) != 1 {
				t.Errorf("exported %d snapshots, want 1", len(exp.snapshots))
			}
			if tt.wantAlerts > 0 {
				a := pub.alerts[0]
				if a.Status != string(finance.Critical) || a.ReferenceDate != "2025-01-10" || len(a.Reasons) != 2 {
					t.Errorf("unexpected alert: %+v", a)
				}
				if a.LowestBalanceDate != "2025-01-15" || !a.LowestBalance.Equal(dec("-100")) {
					t.Errorf("lowest = %s on %s", a.LowestBalance, a.LowestBalanceDate)
				}
			}
		})
	}
}

func TestHealthMonitor_DownstreamFailuresAreLogged(t *testing.T) {
	pub := &fakePublisher{err: errUpstream}
	exp := &fakeExporter{err: errUpstream}
	if _, err := newMonitor(seededStore("1800"), pub, exp).Check(context.Background()); err != nil {
		t.Fatalf("Check should swallow downstream failures, got %v", err)
	}

	// Without publisher or exporter the check still runs.
	if _, err := newMonitor(seededStore("1800"), nil, nil).Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestHealthMonitor_ReadFailure(t *testing.T) {
	exp := &fakeExporter{}
	_, err := newMonitor(brokenStore{seededStore("500")}, nil, exp).Check(context.Background())
	if !errors.Is(err, errUpstream) {
		t.Fatalf("error = %v, want upstream failure", err)
	}
	if len(exp.snapshots) != 0 {
		t.Error("nothing should be exported after a failed read")
	}
}

type countingChecker struct {
	calls int
	err   error
}

func (c *countingChecker) Check(context.Context) (finance.HealthSnapshot, error) {
	c.calls++
	return finance.HealthSnapshot{}, c.err
}

func TestHealthScheduler(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a bad schedule", func(t *testing.T) {
		s := NewHealthScheduler(&countingChecker{}, "whenever")
		if err := s.Start(ctx); err == nil {
			t.Fatal("expected error")
		}
		if s.IsRunning() {
			t.Error("scheduler should not be running")
		}
	})

	t.Run("start twice", func(t *testing.T) {
		s := NewHealthScheduler(&countingChecker{}, "0 8 * * *")
		if err := s.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := s.Start(ctx); err == nil {
			t.Error("expected error when starting a running scheduler")
		}
		if err := s.Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
		if s.IsRunning() {
			t.Error("scheduler should be stopped")
		}
	})

	t.Run("stop when not running", func(t *testing.T) {
		if err := NewHealthScheduler(&countingChecker{}, "0 8 * * *").Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})

	t.Run("ledger events trigger a check", func(t *testing.T) {
		c := &countingChecker{}
		s := NewHealthScheduler(c, "0 8 * * *")
		event := amqp.NewLedgerEvent(amqp.EntityTransaction, "t1", amqp.ActionCreated)

		if err := s.HandleLedgerEvent(ctx, event); err != nil {
			t.Fatalf("HandleLedgerEvent: %v", err)
		}
		c.err = errUpstream
		if err := s.HandleLedgerEvent(ctx, event); !errors.Is(err, errUpstream) {
			t.Errorf("error = %v, want upstream failure", err)
		}
		if c.calls != 2 {
			t.Errorf("calls = %d, want 2", c.calls)
		}
	})
}
