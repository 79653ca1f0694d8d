package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"consultcrm/internal/amqp"
	"consultcrm/internal/core"
	"consultcrm/internal/finance"
	applog "consultcrm/internal/log"
)

// AlertPublisher delivers health alerts. *amqp.Client implements it.
type AlertPublisher interface {
	PublishHealthAlert(ctx context.Context, alert *amqp.HealthAlert) error
}

// SnapshotExporter records every health snapshot, e.g. as a spreadsheet row.
type SnapshotExporter interface {
	ExportSnapshot(ctx context.Context, s finance.HealthSnapshot) error
}

// HealthMonitor runs the periodic health check.
type HealthMonitor struct {
	finance  *FinanceService
	alerts   AlertPublisher
	exporter SnapshotExporter
	horizon  int
	now      func() time.Time
}

// NewHealthMonitor accepts nil alerts and exporter.
func NewHealthMonitor(fs *FinanceService, alerts AlertPublisher, exporter SnapshotExporter, horizonDays int) *HealthMonitor {
	if horizonDays <= 0 {
		horizonDays = finance.DefaultHorizonDays
	}
	return &HealthMonitor{
		finance:  fs,
		alerts:   alerts,
		exporter: exporter,
		horizon:  horizonDays,
		now:      time.Now,
	}
}

// Check evaluates the ledger as of now. Only a failed ledger read is
// returned as an error; alert and export failures are logged so a broken
// downstream never blocks the next check.
func (m *HealthMonitor) Check(ctx context.Context) (finance.HealthSnapshot, error) {
	ref := m.now().UTC()

	metrics, err := m.finance.Metrics(ctx, ref)
	if err != nil {
		return finance.HealthSnapshot{}, fmt.Errorf("compute metrics: %w", err)
	}
	forecast, err := m.finance.Forecast(ctx, ref, m.horizon)
	if err != nil {
		return finance.HealthSnapshot{}, fmt.Errorf("compute forecast: %w", err)
	}
	snap := finance.NewHealthSnapshot(ref, metrics, forecast)

	slog.InfoContext(ctx, "Health check completed",
		applog.FieldComponent, applog.ComponentFinance,
		applog.FieldReference, ref.Format(core.ISODate),
		applog.FieldHealth, snap.Status,
		applog.FieldExpectedCash, snap.ExpectedCash.StringFixed(2),
		applog.FieldCommitments, snap.TotalCommitments.StringFixed(2),
		applog.FieldHorizonDays, m.horizon,
		"lowest_balance", snap.LowestBalance.StringFixed(2))

	if snap.AtRisk() {
		m.raise(ctx, snap)
	}
	if m.exporter != nil {
		if err := m.exporter.ExportSnapshot(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to export health snapshot",
				applog.FieldComponent, applog.ComponentSheets, applog.FieldError, err)
		}
	}
	return snap, nil
}

func (m *HealthMonitor) raise(ctx context.Context, snap finance.HealthSnapshot) {
	alert := NewHealthAlert(snap)
	if m.alerts == nil {
		slog.WarnContext(ctx, "Health at risk, no alert publisher configured", "reasons", alert.Reasons)
		return
	}
	if err := m.alerts.PublishHealthAlert(ctx, alert); err != nil {
		slog.ErrorContext(ctx, "Failed to publish health alert",
			applog.FieldComponent, applog.ComponentAMQP, applog.FieldHealth, snap.Status, applog.FieldError, err)
	}
}

// NewHealthAlert converts an at-risk snapshot into its alert message.
func NewHealthAlert(snap finance.HealthSnapshot) *amqp.HealthAlert {
	var reasons []string
	if snap.Status != finance.Healthy {
		reasons = append(reasons, fmt.Sprintf("health status %s: expected cash %s against commitments %s",
			snap.Status, snap.ExpectedCash.StringFixed(2), snap.TotalCommitments.StringFixed(2)))
	}
	if snap.LowestBalance.IsNegative() {
		reasons = append(reasons, fmt.Sprintf("forecast balance reaches %s on %s",
			snap.LowestBalance.StringFixed(2), snap.LowestBalanceDate.Format(core.ISODate)))
	}

	alert := &amqp.HealthAlert{
		Status:           string(snap.Status),
		ReferenceDate:    snap.ReferenceDate.Format(core.ISODate),
		ExpectedCash:     snap.ExpectedCash,
		TotalCommitments: snap.TotalCommitments,
		Surplus:          snap.Surplus,
		LowestBalance:    snap.LowestBalance,
		Reasons:          reasons,
		Timestamp:        time.Now().UTC(),
	}
	if !snap.LowestBalanceDate.IsZero() {
		alert.LowestBalanceDate = snap.LowestBalanceDate.Format(core.ISODate)
	}
	return alert
}
