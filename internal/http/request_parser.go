package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
	"consultcrm/internal/finance"
)

const (
	maxBodyBytes   = 64 << 10
	maxHorizonDays = 365
)

// errBadRequest marks malformed input, as opposed to well-formed input that
// fails domain validation.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// parseReferenceDate reads ?date=, defaulting to now.
func parseReferenceDate(q url.Values, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(q.Get("date"))
	if v == "" {
		return now, nil
	}
	d, err := core.ParseDay(v)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q: expected YYYY-MM-DD", v)
	}
	return d, nil
}

// parseHorizon reads ?days=, 1 to 365.
func parseHorizon(q url.Values, def int) (int, error) {
	v := strings.TrimSpace(q.Get("days"))
	if v == "" {
		return def, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 || days > maxHorizonDays {
		return 0, badRequest("invalid days %q: must be between 1 and %d", v, maxHorizonDays)
	}
	return days, nil
}

func parseAnalyticsQuery(q url.Values, now time.Time) (finance.AnalyticsQuery, error) {
	query := finance.AnalyticsQuery{ReferenceDate: now}

	for key, dst := range map[string]*time.Time{"from": &query.From, "to": &query.To} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			d, err := core.ParseDay(v)
			if err != nil {
				return query, badRequest("invalid %s %q: expected YYYY-MM-DD", key, v)
			}
			*dst = d
		}
	}
	if !query.From.IsZero() && !query.To.IsZero() && query.From.After(query.To) {
		return query, badRequest("from must not be after to")
	}

	switch g := finance.GroupBy(strings.ToLower(q.Get("groupBy"))); g {
	case "", finance.GroupByDay, finance.GroupByMonth:
		query.GroupBy = g
	default:
		return query, badRequest("invalid groupBy %q: must be day or month", g)
	}

	if v := strings.TrimSpace(q.Get("type")); v != "" {
		query.Type = core.TransactionType(strings.ToUpper(v))
		if !query.Type.Valid() {
			return query, badRequest("invalid type %q", v)
		}
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		query.Status = core.TransactionStatus(strings.ToUpper(v))
		if !query.Status.Valid() {
			return query, badRequest("invalid status %q", v)
		}
	}

	// clientId=a,b and clientId=a&clientId=b are both accepted.
	for _, raw := range q["clientId"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				query.ClientIDs = append(query.ClientIDs, id)
			}
		}
	}

	switch m := finance.ViewMode(strings.ToLower(q.Get("viewMode"))); m {
	case "", finance.ViewOverview, finance.ViewProfitability, finance.ViewCashflow:
		query.ViewMode = m
	default:
		return query, badRequest("invalid viewMode %q", m)
	}
	return query, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// parseAmount accepts 12.5, "12.5" and "12,50".
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return decimal.Zero, core.ErrInvalidAmount
	}
	if strings.HasPrefix(v, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, core.ErrInvalidAmount
		}
		v = s
	}
	return core.ParseAmount(v)
}

type transactionInput struct {
	Type          string          `json:"type"`
	Amount        json.RawMessage `json:"amount"`
	Date          string          `json:"date"`
	DueDate       *string         `json:"dueDate"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	SubType       *string         `json:"subType"`
	ClientID      *string         `json:"clientId"`
	Description   string          `json:"description"`
}

// toTransaction converts the payload; status defaults to PENDING.
func (in transactionInput) toTransaction() (core.Transaction, error) {
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDay(strings.TrimSpace(in.Date))
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		Type:          core.TransactionType(strings.ToUpper(strings.TrimSpace(in.Type))),
		Amount:        amount,
		Date:          date,
		Status:        core.TransactionStatus(strings.ToUpper(strings.TrimSpace(in.Status))),
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Description:   sanitizeInput(in.Description),
	}
	if t.Status == "" {
		t.Status = core.Pending
	}
	if in.DueDate != nil && strings.TrimSpace(*in.DueDate) != "" {
		due, err := core.ParseDay(strings.TrimSpace(*in.DueDate))
		if err != nil {
			return core.Transaction{}, err
		}
		t.DueDate = &due
	}
	if in.SubType != nil {
		t.SubType = core.CostType(strings.ToUpper(strings.TrimSpace(*in.SubType)))
	}
	if in.ClientID != nil {
		t.ClientID = strings.TrimSpace(*in.ClientID)
	}
	return t, nil
}

type liabilityInput struct {
	Name           string          `json:"name"`
	MonthlyPayment json.RawMessage `json:"monthlyPayment"`
	DueDate        *int            `json:"dueDate"`
	Status         string          `json:"status"`
}

// toLiability converts the payload; status defaults to UP_TO_DATE.
func (in liabilityInput) toLiability() (core.Liability, error) {
	payment, err := parseAmount(in.MonthlyPayment)
	if err != nil {
		return core.Liability{}, err
	}
	l := core.Liability{
		Name:           sanitizeInput(in.Name),
		MonthlyPayment: payment,
		Status:         core.LiabilityStatus(strings.ToUpper(strings.TrimSpace(in.Status))),
	}
	if l.Status == "" {
		l.Status = core.UpToDate
	}
	if in.DueDate != nil {
		if *in.DueDate < 1 {
			return core.Liability{}, core.ErrInvalidDueDay
		}
		l.DueDay = *in.DueDate
	}
	return l, nil
}

type contactInput struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Email string `json:"email"`
}

// toContact converts the payload; new contacts are leads unless stated.
func (in contactInput) toContact() core.Contact {
	c := core.Contact{
		Name:  sanitizeInput(in.Name),
		Kind:  core.ContactKind(strings.ToUpper(strings.TrimSpace(in.Type))),
		Email: strings.TrimSpace(in.Email),
	}
	if c.Kind == "" {
		c.Kind = core.Lead
	}
	return c
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
