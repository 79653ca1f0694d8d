package http

import (
	"time"

	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
	"consultcrm/internal/finance"
)

// Amounts leave the API as JSON numbers rounded to cents.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func isoDate(t time.Time) string {
	return t.Format(core.ISODate)
}

type metricsResponse struct {
	ReferenceDate              string  `json:"referenceDate"`
	CashFlow                   float64 `json:"cashFlow"`
	AccountsReceivable         float64 `json:"accountsReceivable"`
	AccountsPayable            float64 `json:"accountsPayable"`
	Balance                    float64 `json:"balance"`
	TotalMonthlyPersonalBurden float64 `json:"totalMonthlyPersonalBurden"`
	CurrentFixedCosts          float64 `json:"currentFixedCosts"`
	BusinessVariableCosts      float64 `json:"businessVariableCosts"`
	TotalSalesCurrentMonth     float64 `json:"totalSalesCurrentMonth"`
	BreakEvenPoint             float64 `json:"breakEvenPoint"`
	Margin                     float64 `json:"margin"`
	ExpectedCash               float64 `json:"expectedCash"`
	TotalCommitments           float64 `json:"totalCommitments"`
	Surplus                    float64 `json:"surplus"`
	HealthStatus               string  `json:"healthStatus"`
	IsProfitable               bool    `json:"isProfitable"`
}

func newMetricsResponse(ref time.Time, m finance.MonthlyMetrics) metricsResponse {
	return metricsResponse{
		ReferenceDate:              isoDate(ref),
		CashFlow:                   money(m.CashFlow),
		AccountsReceivable:         money(m.AccountsReceivable),
		AccountsPayable:            money(m.AccountsPayable),
		Balance:                    money(m.Balance),
		TotalMonthlyPersonalBurden: money(m.TotalMonthlyPersonalBurden),
		CurrentFixedCosts:          money(m.CurrentFixedCosts),
		BusinessVariableCosts:      money(m.BusinessVariableCosts),
		TotalSalesCurrentMonth:     money(m.TotalSalesCurrentMonth),
		BreakEvenPoint:             money(m.BreakEvenPoint),
		// margin is a ratio, not money
		Margin:           m.Margin.Round(4).InexactFloat64(),
		ExpectedCash:     money(m.ExpectedCash),
		TotalCommitments: money(m.TotalCommitments),
		Surplus:          money(m.Surplus),
		HealthStatus:     string(m.HealthStatus),
		IsProfitable:     m.IsProfitable(),
	}
}

type forecastPoint struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

type forecastResponse struct {
	ReferenceDate string          `json:"referenceDate"`
	HorizonDays   int             `json:"horizonDays"`
	Points        []forecastPoint `json:"points"`
	Lowest        *forecastPoint  `json:"lowest,omitempty"`
}

func newForecastResponse(ref time.Time, days int, points []finance.ForecastPoint) forecastResponse {
	resp := forecastResponse{
		ReferenceDate: isoDate(ref),
		HorizonDays:   days,
		Points:        make([]forecastPoint, 0, len(points)),
	}
	for _, p := range points {
		resp.Points = append(resp.Points, forecastPoint{Date: isoDate(p.Date), Balance: money(p.Balance)})
	}
	if low, ok := finance.Lowest(points); ok {
		resp.Lowest = &forecastPoint{Date: isoDate(low.Date), Balance: money(low.Balance)}
	}
	return resp
}

type analyticsSummary struct {
	TotalIncome          float64 `json:"totalIncome"`
	TotalExpense         float64 `json:"totalExpense"`
	CashFlow             float64 `json:"cashFlow"`
	AccountsReceivable   float64 `json:"accountsReceivable"`
	AccountsPayable      float64 `json:"accountsPayable"`
	TotalSales           float64 `json:"totalSales"`
	FixedCosts           float64 `json:"fixedCosts"`
	VariableCosts        float64 `json:"variableCosts"`
	Margin               float64 `json:"margin"`
	Billed               float64 `json:"billed"`
	Collected            float64 `json:"collected"`
	CollectionEfficiency float64 `json:"collectionEfficiency"`
	TransactionCount     int     `json:"transactionCount"`
}

type chartPoint struct {
	Label   string  `json:"label"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

type contactTotal struct {
	ClientID string  `json:"clientId"`
	Name     string  `json:"name"`
	Total    float64 `json:"total"`
}

type period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type analyticsResponse struct {
	Period    period           `json:"period"`
	Summary   analyticsSummary `json:"summary"`
	ChartData []chartPoint     `json:"chartData"`
	Breakdown []contactTotal   `json:"breakdown"`
}

func newAnalyticsResponse(a finance.Analytics) analyticsResponse {
	s := a.Summary
	resp := analyticsResponse{
		Period: period{From: isoDate(a.From), To: isoDate(a.To)},
		Summary: analyticsSummary{
			TotalIncome:          money(s.TotalIncome),
			TotalExpense:         money(s.TotalExpense),
			CashFlow:             money(s.CashFlow),
			AccountsReceivable:   money(s.AccountsReceivable),
			AccountsPayable:      money(s.AccountsPayable),
			TotalSales:           money(s.TotalSales),
			FixedCosts:           money(s.FixedCosts),
			VariableCosts:        money(s.VariableCosts),
			Margin:               s.Margin.Round(4).InexactFloat64(),
			Billed:               money(s.Billed),
			Collected:            money(s.Collected),
			CollectionEfficiency: s.CollectionEfficiency.Round(2).InexactFloat64(),
			TransactionCount:     s.TransactionCount,
		},
		ChartData: make([]chartPoint, 0, len(a.ChartData)),
		Breakdown: make([]contactTotal, 0, len(a.Breakdown)),
	}
	for _, p := range a.ChartData {
		resp.ChartData = append(resp.ChartData, chartPoint{Label: p.Label, Income: money(p.Income), Expense: money(p.Expense)})
	}
	for _, c := range a.Breakdown {
		resp.Breakdown = append(resp.Breakdown, contactTotal{ClientID: c.ClientID, Name: c.Name, Total: money(c.Total)})
	}
	return resp
}

type transactionDTO struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	DueDate       *string `json:"dueDate"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	SubType       string  `json:"subType,omitempty"`
	ClientID      string  `json:"clientId,omitempty"`
	Description   string  `json:"description,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

func newTransactionDTO(t core.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:            t.ID,
		Type:          string(t.Type),
		Amount:        money(t.Amount),
		Date:          isoDate(t.Date),
		Status:        string(t.Status),
		PaymentMethod: t.PaymentMethod,
		SubType:       string(t.SubType),
		ClientID:      t.ClientID,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.DueDate != nil {
		due := isoDate(*t.DueDate)
		dto.DueDate = &due
	}
	return dto
}

type liabilityDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	DueDate        *int    `json:"dueDate"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"createdAt"`
}

func newLiabilityDTO(l core.Liability) liabilityDTO {
	dto := liabilityDTO{
		ID:             l.ID,
		Name:           l.Name,
		MonthlyPayment: money(l.MonthlyPayment),
		Status:         string(l.Status),
		CreatedAt:      l.CreatedAt.UTC().Format(time.RFC3339),
	}
	if l.DueDay > 0 {
		day := l.DueDay
		dto.DueDate = &day
	}
	return dto
}

type contactDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func newContactDTO(c core.Contact) contactDTO {
	return contactDTO{
		ID:        c.ID,
		Name:      c.Name,
		Type:      string(c.Kind),
		Email:     c.Email,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
