package finance

import (
	"testing"
	"time"

	"consultcrm/internal/core"
)

func TestLiquidityForecast_LiabilityTrigger(t *testing.T) {
	liabs := []core.Liability{{Name: "Loan", MonthlyPayment: dec("900"), DueDay: 15, Status: core.UpToDate}}
	start := day(2025, 1, 1)

	points := ComputeLiquidityForecast(nil, liabs, start, DefaultHorizonDays)
	if len(points) != DefaultHorizonDays+1 {
		t.Fatalf("expected %d points, got %d", DefaultHorizonDays+1, len(points))
	}

	for _, p := range points {
		want := "0"
		if p.Date.Day() >= 15 {
			want = "-900"
		}
		if !p.Balance.Equal(dec(want)) {
			t.Errorf("%s: balance %s, want %s", p.Date.Format(core.ISODate), p.Balance, want)
		}
	}
	if !points[14].Date.Equal(day(2025, 1, 15)) {
		t.Fatalf("point 14 dated %s", points[14].Date)
	}
	if drop := points[13].Balance.Sub(points[14].Balance); !drop.Equal(dec("900")) {
		t.Errorf("drop on the 15th = %s, want 900", drop)
	}
	if !points[15].Balance.Equal(points[14].Balance) {
		t.Errorf("balance moved on the 16th: %s", points[15].Balance)
	}
}

func TestLiquidityForecast_Idempotent(t *testing.T) {
	due := day(2025, 3, 12)
	txs := []core.Transaction{
		tx(core.Income, "1200", day(2025, 2, 1), core.Paid),
		{Type: core.Income, Amount: dec("300"), Date: day(2025, 2, 20), DueDate: &due, Status: core.Pending},
		tx(core.Expense, "80", day(2025, 3, 5), core.Overdue),
	}
	liabs := []core.Liability{{Name: "Rent", MonthlyPayment: dec("500"), DueDay: 10, Status: core.UpToDate}}
	at := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	seq := LiquidityForecast(txs, liabs, at, 20)
	first := collect(seq)
	second := collect(seq)
	third := ComputeLiquidityForecast(txs, liabs, at, 20)

	for _, other := range [][]ForecastPoint{second, third} {
		if len(other) != len(first) {
			t.Fatalf("length mismatch: %d vs %d", len(other), len(first))
		}
		for i := range first {
			if !first[i].Date.Equal(other[i].Date) || !first[i].Balance.Equal(other[i].Balance) {
				t.Fatalf("point %d differs: %+v vs %+v", i, first[i], other[i])
			}
		}
	}

	want := map[int]string{0: "1200", 3: "1200", 4: "1120", 9: "620", 11: "920", 20: "920"}
	for i, w := range want {
		if !first[i].Balance.Equal(dec(w)) {
			t.Errorf("day %d balance %s, want %s", i, first[i].Balance, w)
		}
	}
}

func collect(seq func(func(ForecastPoint) bool)) []ForecastPoint {
	var out []ForecastPoint
	for p := range seq {
		out = append(out, p)
	}
	return out
}

func TestLiquidityForecast_EarlyStop(t *testing.T) {
	n := 0
	for range LiquidityForecast(nil, nil, day(2025, 1, 1), 365) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("expected 3 iterations, got %d", n)
	}
}

func TestLiquidityForecast_Edges(t *testing.T) {
	t.Run("day 31 skips short months", func(t *testing.T) {
		liabs := []core.Liability{{Name: "Card", MonthlyPayment: dec("50"), DueDay: 31, Status: core.UpToDate}}
		points := ComputeLiquidityForecast(nil, liabs, day(2025, 4, 1), 29)
		last := points[len(points)-1]
		if !last.Date.Equal(day(2025, 4, 30)) {
			t.Fatalf("last point %s", last.Date)
		}
		if !last.Balance.IsZero() {
			t.Errorf("day 31 liability fired in April: %s", last.Balance)
		}
	})

	t.Run("negative horizon yields reference day only", func(t *testing.T) {
		points := ComputeLiquidityForecast(nil, nil, day(2025, 1, 1), -5)
		if len(points) != 1 {
			t.Fatalf("expected 1 point, got %d", len(points))
		}
	})

	t.Run("seed includes future paid and ignores barter", func(t *testing.T) {
		txs := []core.Transaction{
			tx(core.Income, "100", day(2026, 1, 1), core.Paid),
			{Type: core.Income, Amount: dec("999"), Date: day(2024, 1, 1), Status: core.Paid, PaymentMethod: "CANJE"},
			tx(core.Expense, "40", day(2024, 6, 1), core.Cancelled),
		}
		points := ComputeLiquidityForecast(txs, nil, day(2025, 1, 1), 0)
		if !points[0].Balance.Equal(dec("100")) {
			t.Errorf("seed = %s, want 100", points[0].Balance)
		}
	})
}

func TestLowest(t *testing.T) {
	if _, ok := Lowest(nil); ok {
		t.Fatalf("expected no point for empty forecast")
	}
	points := []ForecastPoint{
		{Date: day(2025, 1, 1), Balance: dec("10")},
		{Date: day(2025, 1, 2), Balance: dec("-5")},
		{Date: day(2025, 1, 3), Balance: dec("-5")},
	}
	low, _ := Lowest(points)
	if !low.Date.Equal(day(2025, 1, 2)) {
		t.Errorf("lowest dated %s, want earliest minimum", low.Date)
	}
}
