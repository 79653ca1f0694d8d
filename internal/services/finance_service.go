// Package services composes the ledger ports with the finance aggregator,
// the event publisher and the snapshot exporter.
package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"consultcrm/internal/core"
	"consultcrm/internal/finance"
	"consultcrm/internal/ledger"
)

// LedgerReader is the read side of the store the finance reports need.
type LedgerReader interface {
	ledger.TransactionReader
	ledger.LiabilityReader
	ledger.ContactReader
}

// FinanceService loads a consistent snapshot of the ledger and runs the
// aggregator over it.
type FinanceService struct {
	store LedgerReader
}

func NewFinanceService(store LedgerReader) *FinanceService {
	return &FinanceService{store: store}
}

type snapshot struct {
	transactions []core.Transaction
	liabilities  []core.Liability
}

// load reads transactions and liabilities concurrently. The first failing
// read cancels the other and is returned.
func (s *FinanceService) load(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.transactions = txs
		return nil
	})
	g.Go(func() error {
		liabs, err := s.store.ListLiabilities(gctx)
		if err != nil {
			return fmt.Errorf("list liabilities: %w", err)
		}
		snap.liabilities = liabs
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *FinanceService) Metrics(ctx context.Context, ref time.Time) (finance.MonthlyMetrics, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return finance.MonthlyMetrics{}, err
	}
	return finance.ComputeMonthlyMetrics(snap.transactions, snap.liabilities, ref), nil
}

func (s *FinanceService) Forecast(ctx context.Context, ref time.Time, days int) ([]finance.ForecastPoint, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return finance.ComputeLiquidityForecast(snap.transactions, snap.liabilities, ref, days), nil
}

// Analytics runs a range report. Only transactions and contacts are read.
func (s *FinanceService) Analytics(ctx context.Context, query finance.AnalyticsQuery) (finance.Analytics, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		txs      []core.Transaction
		contacts []core.Contact
	)
	g.Go(func() error {
		var err error
		if txs, err = s.store.ListTransactions(gctx); err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if contacts, err = s.store.ListContacts(gctx); err != nil {
			return fmt.Errorf("list contacts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return finance.Analytics{}, err
	}
	return finance.ComputeAnalytics(txs, query, contacts), nil
}
