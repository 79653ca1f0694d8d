package finance

import (
	"iter"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
)

// DefaultHorizonDays is the forecast length used when none is configured.
const DefaultHorizonDays = 30

// ForecastPoint is the projected liquid balance at the end of a day.
type ForecastPoint struct {
	Date    time.Time
	Balance decimal.Decimal
}

// LiquidityForecast yields horizonDays+1 daily points starting at the
// reference day. The sequence is recomputed from the inputs on every range,
// so it can be iterated any number of times.
//
// The opening balance is every PAID liquid transaction regardless of its date,
// future-dated ones included. Open transactions land on their due date (or
// their date when no due date is set) and liabilities on their day of month;
// a day that does not exist in a month never fires.
func LiquidityForecast(transactions []core.Transaction, liabilities []core.Liability, referenceDate time.Time, horizonDays int) iter.Seq[ForecastPoint] {
	if horizonDays < 0 {
		horizonDays = 0
	}
	start := core.StartOfDay(referenceDate)

	return func(yield func(ForecastPoint) bool) {
		running := decimal.Zero
		for _, tx := range transactions {
			if tx.Status == core.Paid && tx.IsLiquid() {
				running = running.Add(tx.Signed())
			}
		}

		for d := 0; d <= horizonDays; d++ {
			day := start.AddDate(0, 0, d)
			for _, tx := range transactions {
				if tx.IsOpen() && core.SameDay(tx.ExpectedOn(), day) {
					running = running.Add(tx.Signed())
				}
			}
			for _, l := range liabilities {
				if l.DueDay == day.Day() {
					running = running.Sub(l.MonthlyPayment)
				}
			}
			if !yield(ForecastPoint{Date: day, Balance: running}) {
				return
			}
		}
	}
}

// ComputeLiquidityForecast collects LiquidityForecast into a slice.
func ComputeLiquidityForecast(transactions []core.Transaction, liabilities []core.Liability, referenceDate time.Time, horizonDays int) []ForecastPoint {
	return slices.Collect(LiquidityForecast(transactions, liabilities, referenceDate, horizonDays))
}

// Lowest returns the point with the smallest balance, the earliest on ties.
func Lowest(points []ForecastPoint) (ForecastPoint, bool) {
	if len(points) == 0 {
		return ForecastPoint{}, false
	}
	low := points[0]
	for _, p := range points[1:] {
		if p.Balance.LessThan(low.Balance) {
			low = p
		}
	}
	return low, true
}
