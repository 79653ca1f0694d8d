package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type (
	Entity string
	Action string
)

const (
	EntityTransaction Entity = "transaction"
	EntityLiability   Entity = "liability"
	EntityContact     Entity = "contact"

	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// LedgerEvent announces a change to a ledger record. It carries only the
// reference; consumers reload whatever they need.
type LedgerEvent struct {
	Entity    Entity    `json:"entity"`
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(entity Entity, id string, action Action) *LedgerEvent {
	return &LedgerEvent{
		Entity:    entity,
		ID:        id,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Entity == "" || e.ID == "" {
		return nil, fmt.Errorf("ledger event missing entity or id")
	}
	return &e, nil
}

// HealthAlert is raised when a health check finds the business at risk.
type HealthAlert struct {
	Status            string          `json:"status"`
	ReferenceDate     string          `json:"referenceDate"`
	ExpectedCash      decimal.Decimal `json:"expectedCash"`
	TotalCommitments  decimal.Decimal `json:"totalCommitments"`
	Surplus           decimal.Decimal `json:"surplus"`
	LowestBalance     decimal.Decimal `json:"lowestBalance"`
	LowestBalanceDate string          `json:"lowestBalanceDate"`
	Reasons           []string        `json:"reasons"`
	Timestamp         time.Time       `json:"timestamp"`
}

func (a *HealthAlert) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

func HealthAlertFromJSON(data []byte) (*HealthAlert, error) {
	var a HealthAlert
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
