package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"

	Paid      TransactionStatus = "PAID"
	Pending   TransactionStatus = "PENDING"
	Overdue   TransactionStatus = "OVERDUE"
	Cancelled TransactionStatus = "CANCELLED"

	BusinessFixed    CostType = "BUSINESS_FIXED"
	BusinessVariable CostType = "BUSINESS_VARIABLE"

	UpToDate         LiabilityStatus = "UP_TO_DATE"
	LiabilityPending LiabilityStatus = "PENDING"
	LiabilityOverdue LiabilityStatus = "OVERDUE"

	Client ContactKind = "CLIENT"
	Lead   ContactKind = "LEAD"

	// PaymentMethodBarter marks a transaction settled in kind rather than cash.
	PaymentMethodBarter = "CANJE"
)

type (
	TransactionType   string
	TransactionStatus string
	CostType          string
	LiabilityStatus   string
	ContactKind       string

	Transaction struct {
		ID            string
		Type          TransactionType
		Amount        decimal.Decimal
		Date          time.Time
		DueDate       *time.Time
		Status        TransactionStatus
		PaymentMethod string
		SubType       CostType // empty when the expense is not classified
		ClientID      string
		Description   string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Liability is a recurring personal obligation of the owner (rent, loan
	// installment, subscriptions).
	Liability struct {
		ID             string
		Name           string
		MonthlyPayment decimal.Decimal
		DueDay         int // day of month 1-31, 0 when unknown
		Status         LiabilityStatus
		CreatedAt      time.Time
	}

	Contact struct {
		ID        string
		Name      string
		Kind      ContactKind
		Email     string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidSubType  = errors.New("invalid cost type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidDueDay   = errors.New("invalid due day")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidKind     = errors.New("invalid contact kind")
	ErrDescriptionLong = errors.New("description too long (max 200 characters)")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case Paid, Pending, Overdue, Cancelled:
		return true
	}
	return false
}

func (c CostType) Valid() bool {
	return c == BusinessFixed || c == BusinessVariable
}

func (s LiabilityStatus) Valid() bool {
	switch s {
	case UpToDate, LiabilityPending, LiabilityOverdue:
		return true
	}
	return false
}

// IsLiquid reports whether the transaction moves cash. Barter (CANJE) does not.
func (t Transaction) IsLiquid() bool {
	return !strings.EqualFold(strings.TrimSpace(t.PaymentMethod), PaymentMethodBarter)
}

// IsOpen reports whether the amount is still to be settled.
func (t Transaction) IsOpen() bool {
	return t.Status == Pending || t.Status == Overdue
}

// Signed returns the amount with the sign of its cash direction.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ExpectedOn is the day an open amount is expected to resolve: the due date
// when set, the transaction date otherwise.
func (t Transaction) ExpectedOn() time.Time {
	if t.DueDate != nil && !t.DueDate.IsZero() {
		return *t.DueDate
	}
	return t.Date
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.SubType != "" && !t.SubType.Valid() {
		return ErrInvalidSubType
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

func (l Liability) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	if !l.MonthlyPayment.IsPositive() {
		return ErrInvalidAmount
	}
	if l.DueDay < 0 || l.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if !l.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (c Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Kind != Client && c.Kind != Lead {
		return ErrInvalidKind
	}
	return nil
}
