package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"consultcrm/internal/amqp"
	"consultcrm/internal/finance"
	applog "consultcrm/internal/log"
)

// HealthChecker runs one health check. *HealthMonitor implements it.
type HealthChecker interface {
	Check(ctx context.Context) (finance.HealthSnapshot, error)
}

// HealthScheduler triggers health checks on a cron schedule and on ledger
// events. Checks never overlap.
type HealthScheduler struct {
	checker  HealthChecker
	schedule string

	checkMu sync.Mutex

	// Lifecycle management
	mu   sync.Mutex
	cron *cron.Cron
}

func NewHealthScheduler(checker HealthChecker, schedule string) *HealthScheduler {
	return &HealthScheduler{checker: checker, schedule: schedule}
}

// Start registers the scheduled check. Returns an error if already running
// or if the schedule does not parse.
func (s *HealthScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("health scheduler is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.run(ctx, "schedule") }); err != nil {
		return fmt.Errorf("parse health check schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c

	slog.InfoContext(ctx, "Health scheduler started", applog.FieldComponent, applog.ComponentScheduler, "schedule", s.schedule)
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (s *HealthScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		slog.InfoContext(ctx, "Health scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Health scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *HealthScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// HandleLedgerEvent re-checks health after a ledger change. A failed ledger
// read is returned so the event is redelivered.
func (s *HealthScheduler) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.DebugContext(ctx, "Ledger changed, checking health", "entity", event.Entity, "id", event.ID, "action", event.Action)
	_, err := s.check(ctx)
	return err
}

func (s *HealthScheduler) run(ctx context.Context, trigger string) {
	if _, err := s.check(ctx); err != nil {
		slog.ErrorContext(ctx, "Health check failed", applog.FieldComponent, applog.ComponentScheduler, "trigger", trigger, applog.FieldError, err)
	}
}

func (s *HealthScheduler) check(ctx context.Context) (finance.HealthSnapshot, error) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	return s.checker.Check(ctx)
}
