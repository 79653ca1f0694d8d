package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// HealthSnapshot condenses the monthly metrics and the forecast into the
// figures a periodic health check records.
type HealthSnapshot struct {
	ReferenceDate     time.Time
	Status            HealthStatus
	ExpectedCash      decimal.Decimal
	TotalCommitments  decimal.Decimal
	Surplus           decimal.Decimal
	BreakEvenPoint    decimal.Decimal
	TotalSales        decimal.Decimal
	LowestBalance     decimal.Decimal
	LowestBalanceDate time.Time
}

func NewHealthSnapshot(ref time.Time, m MonthlyMetrics, forecast []ForecastPoint) HealthSnapshot {
	s := HealthSnapshot{
		ReferenceDate:    ref,
		Status:           m.HealthStatus,
		ExpectedCash:     m.ExpectedCash,
		TotalCommitments: m.TotalCommitments,
		Surplus:          m.Surplus,
		BreakEvenPoint:   m.BreakEvenPoint,
		TotalSales:       m.TotalSalesCurrentMonth,
	}
	if low, ok := Lowest(forecast); ok {
		s.LowestBalance = low.Balance
		s.LowestBalanceDate = low.Date
	}
	return s
}

// AtRisk reports whether the snapshot should raise an alert: the status is
// not healthy or the forecast balance dips below zero.
func (s HealthSnapshot) AtRisk() bool {
	return s.Status != Healthy || s.LowestBalance.IsNegative()
}
