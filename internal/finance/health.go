package finance

import "github.com/shopspring/decimal"

type HealthStatus string

const (
	Healthy  HealthStatus = "HEALTHY"
	Warning  HealthStatus = "WARNING"
	Critical HealthStatus = "CRITICAL"
)

var warningFactor = decimal.NewFromFloat(1.5)

// ClassifyHealth compares the cash the business expects to hold against what
// it owes. Covering commitments exactly is critical, covering them one and a
// half times is healthy. With no commitments at all, only a negative
// expectation is critical.
func ClassifyHealth(expectedCash, totalCommitments decimal.Decimal) HealthStatus {
	switch {
	case expectedCash.LessThan(totalCommitments):
		return Critical
	case totalCommitments.IsPositive() && expectedCash.Equal(totalCommitments):
		return Critical
	case expectedCash.LessThan(totalCommitments.Mul(warningFactor)):
		return Warning
	default:
		return Healthy
	}
}
