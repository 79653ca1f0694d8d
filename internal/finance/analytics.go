package finance

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
)

type (
	GroupBy  string
	ViewMode string
)

const (
	GroupByDay   GroupBy = "day"
	GroupByMonth GroupBy = "month"

	ViewOverview      ViewMode = "overview"
	ViewProfitability ViewMode = "profitability"
	ViewCashflow      ViewMode = "cashflow"

	breakdownSize = 5
)

var hundred = decimal.NewFromInt(100)

// AnalyticsQuery selects the transactions an analytics report covers. Zero
// From/To default to the month of ReferenceDate.
type AnalyticsQuery struct {
	From          time.Time
	To            time.Time
	GroupBy       GroupBy
	Type          core.TransactionType
	Status        core.TransactionStatus
	ClientIDs     []string
	ViewMode      ViewMode
	ReferenceDate time.Time
}

type AnalyticsSummary struct {
	TotalIncome          decimal.Decimal
	TotalExpense         decimal.Decimal
	CashFlow             decimal.Decimal
	AccountsReceivable   decimal.Decimal
	AccountsPayable      decimal.Decimal
	TotalSales           decimal.Decimal
	FixedCosts           decimal.Decimal
	VariableCosts        decimal.Decimal
	Margin               decimal.Decimal
	Billed               decimal.Decimal
	Collected            decimal.Decimal
	CollectionEfficiency decimal.Decimal
	TransactionCount     int
}

// ChartPoint holds the PAID totals of one bucket.
type ChartPoint struct {
	Label   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

type ContactTotal struct {
	ClientID string
	Name     string
	Total    decimal.Decimal
}

type Analytics struct {
	From      time.Time
	To        time.Time
	Summary   AnalyticsSummary
	ChartData []ChartPoint
	Breakdown []ContactTotal
}

// Normalize fills defaults: the reference month as range, daily grouping and
// the overview mode.
func (q AnalyticsQuery) Normalize() AnalyticsQuery {
	first, last := core.MonthBounds(q.ReferenceDate)
	if q.From.IsZero() {
		q.From = first
	}
	if q.To.IsZero() {
		q.To = last
	}
	q.From, q.To = core.StartOfDay(q.From), core.StartOfDay(q.To)
	if q.GroupBy != GroupByMonth {
		q.GroupBy = GroupByDay
	}
	if q.ViewMode == "" {
		q.ViewMode = ViewOverview
	}
	return q
}

func (q AnalyticsQuery) matches(tx core.Transaction) bool {
	if !core.WithinDays(tx.Date, q.From, q.To) {
		return false
	}
	if q.Type != "" && tx.Type != q.Type {
		return false
	}
	if q.Status != "" && tx.Status != q.Status {
		return false
	}
	if len(q.ClientIDs) > 0 && !slices.Contains(q.ClientIDs, tx.ClientID) {
		return false
	}
	return true
}

func (g GroupBy) label(t time.Time) string {
	if g == GroupByMonth {
		return t.Format("2006-01")
	}
	return t.Format(core.ISODate)
}

// ComputeAnalytics filters the transactions by query and aggregates the
// summary, the chart series and the top contacts. Contacts only label the
// breakdown; unknown ids keep an empty name.
func ComputeAnalytics(transactions []core.Transaction, query AnalyticsQuery, contacts []core.Contact) Analytics {
	q := query.Normalize()
	out := Analytics{From: q.From, To: q.To}

	var (
		s       AnalyticsSummary
		buckets = map[string]*ChartPoint{}
		revenue = map[string]decimal.Decimal{}
	)
	for _, tx := range transactions {
		if !q.matches(tx) {
			continue
		}
		s.TransactionCount++

		label := q.GroupBy.label(tx.Date)
		point, ok := buckets[label]
		if !ok {
			point = &ChartPoint{Label: label}
			buckets[label] = point
		}

		paid := tx.Status == core.Paid
		switch tx.Type {
		case core.Income:
			s.Billed = s.Billed.Add(tx.Amount)
			if paid {
				s.Collected = s.Collected.Add(tx.Amount)
				point.Income = point.Income.Add(tx.Amount)
				if tx.ClientID != "" {
					revenue[tx.ClientID] = revenue[tx.ClientID].Add(tx.Amount)
				}
				if tx.IsLiquid() {
					s.TotalIncome = s.TotalIncome.Add(tx.Amount)
				}
			}
			if tx.IsOpen() {
				s.AccountsReceivable = s.AccountsReceivable.Add(tx.Amount)
			}
		case core.Expense:
			if paid {
				point.Expense = point.Expense.Add(tx.Amount)
				if tx.IsLiquid() {
					s.TotalExpense = s.TotalExpense.Add(tx.Amount)
				}
			}
			if tx.IsOpen() {
				s.AccountsPayable = s.AccountsPayable.Add(tx.Amount)
			}
			switch tx.SubType {
			case core.BusinessFixed:
				s.FixedCosts = s.FixedCosts.Add(tx.Amount)
			case core.BusinessVariable:
				s.VariableCosts = s.VariableCosts.Add(tx.Amount)
			}
		}
	}

	s.CashFlow = s.TotalIncome.Sub(s.TotalExpense)
	s.TotalSales = s.Billed
	if s.TotalSales.IsPositive() {
		s.Margin = s.TotalSales.Sub(s.VariableCosts).Div(s.TotalSales)
	}
	if s.Billed.IsPositive() {
		s.CollectionEfficiency = s.Collected.Div(s.Billed).Mul(hundred)
	}
	out.Summary = s

	out.ChartData = make([]ChartPoint, 0, len(buckets))
	for _, p := range buckets {
		out.ChartData = append(out.ChartData, *p)
	}
	slices.SortFunc(out.ChartData, func(a, b ChartPoint) int { return cmp.Compare(a.Label, b.Label) })

	out.Breakdown = []ContactTotal{}
	if q.ViewMode == ViewOverview || q.ViewMode == ViewProfitability {
		names := make(map[string]string, len(contacts))
		for _, c := range contacts {
			names[c.ID] = c.Name
		}
		out.Breakdown = topContacts(revenue, names, breakdownSize)
	}
	return out
}

func topContacts(revenue map[string]decimal.Decimal, names map[string]string, n int) []ContactTotal {
	totals := make([]ContactTotal, 0, len(revenue))
	for id, total := range revenue {
		totals = append(totals, ContactTotal{ClientID: id, Name: names[id], Total: total})
	}
	slices.SortFunc(totals, func(a, b ContactTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.ClientID, b.ClientID)
	})
	if len(totals) > n {
		totals = totals[:n]
	}
	return totals
}
