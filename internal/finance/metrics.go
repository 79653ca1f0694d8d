// Package finance computes the financial health indicators of the ledger:
// monthly metrics and break-even, the daily liquidity forecast and range
// analytics. Every function is pure: inputs are read-only snapshots and the
// reference date is always passed in.
package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
)

// MonthlyMetrics is the health summary for the month containing the
// reference date.
type MonthlyMetrics struct {
	CashFlow                   decimal.Decimal
	AccountsReceivable         decimal.Decimal
	AccountsPayable            decimal.Decimal
	Balance                    decimal.Decimal
	TotalMonthlyPersonalBurden decimal.Decimal
	CurrentFixedCosts          decimal.Decimal
	BusinessVariableCosts      decimal.Decimal
	TotalSalesCurrentMonth     decimal.Decimal
	BreakEvenPoint             decimal.Decimal
	Margin                     decimal.Decimal
	ExpectedCash               decimal.Decimal
	TotalCommitments           decimal.Decimal
	Surplus                    decimal.Decimal
	HealthStatus               HealthStatus
}

// IsProfitable reports whether this month's agreed sales reach the break-even point.
func (m MonthlyMetrics) IsProfitable() bool {
	return m.TotalSalesCurrentMonth.GreaterThanOrEqual(m.BreakEvenPoint)
}

// ComputeMonthlyMetrics aggregates the full transaction and liability lists.
// Callers must not pre-filter: receivables, payables and balance are lifetime
// figures, only cash flow, costs and sales are bound to the current month.
func ComputeMonthlyMetrics(transactions []core.Transaction, liabilities []core.Liability, referenceDate time.Time) MonthlyMetrics {
	first, last := core.MonthBounds(referenceDate)

	var (
		m             MonthlyMetrics
		variableCosts decimal.Decimal
	)
	for _, tx := range transactions {
		inMonth := core.WithinDays(tx.Date, first, last)

		if tx.Status == core.Paid && tx.IsLiquid() {
			m.Balance = m.Balance.Add(tx.Signed())
			if inMonth {
				m.CashFlow = m.CashFlow.Add(tx.Signed())
			}
		}

		if tx.IsOpen() {
			switch tx.Type {
			case core.Income:
				m.AccountsReceivable = m.AccountsReceivable.Add(tx.Amount)
			case core.Expense:
				m.AccountsPayable = m.AccountsPayable.Add(tx.Amount)
			}
		}

		if !inMonth {
			continue
		}
		switch {
		case tx.Type == core.Income:
			m.TotalSalesCurrentMonth = m.TotalSalesCurrentMonth.Add(tx.Amount)
		case tx.Type == core.Expense && tx.SubType == core.BusinessFixed:
			m.CurrentFixedCosts = m.CurrentFixedCosts.Add(tx.Amount)
		case tx.Type == core.Expense && tx.SubType == core.BusinessVariable:
			variableCosts = variableCosts.Add(tx.Amount)
		}
	}

	m.TotalMonthlyPersonalBurden = personalBurden(liabilities)
	m.BusinessVariableCosts = variableCosts
	m.Margin, m.BreakEvenPoint = breakEven(m.TotalSalesCurrentMonth, variableCosts, m.CurrentFixedCosts.Add(m.TotalMonthlyPersonalBurden))

	m.ExpectedCash = m.Balance.Add(m.AccountsReceivable)
	m.TotalCommitments = m.AccountsPayable.Add(m.TotalMonthlyPersonalBurden)
	m.Surplus = m.ExpectedCash.Sub(m.TotalCommitments)
	m.HealthStatus = ClassifyHealth(m.ExpectedCash, m.TotalCommitments)
	return m
}

func personalBurden(liabilities []core.Liability) decimal.Decimal {
	total := decimal.Zero
	for _, l := range liabilities {
		total = total.Add(l.MonthlyPayment)
	}
	return total
}

// breakEven returns the contribution margin and the sales needed to cover the
// obligations. Without a positive margin the obligations themselves are
// reported as the break-even point.
func breakEven(sales, variableCosts, obligations decimal.Decimal) (margin, point decimal.Decimal) {
	if !sales.IsPositive() {
		return decimal.Zero, obligations
	}
	contribution := sales.Sub(variableCosts)
	margin = contribution.Div(sales)
	if !margin.IsPositive() {
		return margin, obligations
	}
	// obligations / margin, rearranged to keep the quotient exact.
	return margin, obligations.Mul(sales).Div(contribution)
}
