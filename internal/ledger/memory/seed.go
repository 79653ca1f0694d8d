package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
)

const (
	TransactionsFile = "transactions.json"
	LiabilitiesFile  = "liabilities.json"
	ContactsFile     = "contacts.json"
)

type transactionRecord struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Amount        json.RawMessage `json:"amount"`
	Date          string          `json:"date"`
	DueDate       string          `json:"dueDate"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	SubType       string          `json:"subType"`
	ClientID      string          `json:"clientId"`
	Description   string          `json:"description"`
}

type liabilityRecord struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	MonthlyPayment json.RawMessage `json:"monthlyPayment"`
	DueDate        int             `json:"dueDate"`
	Status         string          `json:"status"`
}

type contactRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"type"`
	Email string `json:"email"`
}

// NewFromFiles builds a store seeded from the JSON files in base. Missing
// files leave the matching collection empty.
func NewFromFiles(base string) (*Store, error) {
	var (
		txRecs []transactionRecord
		lRecs  []liabilityRecord
		cRecs  []contactRecord
	)
	if err := readJSON(filepath.Join(base, TransactionsFile), &txRecs); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, LiabilitiesFile), &lRecs); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, ContactsFile), &cRecs); err != nil {
		return nil, err
	}

	txs := make([]core.Transaction, 0, len(txRecs))
	for _, r := range txRecs {
		t, err := r.toCore()
		if err != nil {
			return nil, fmt.Errorf("transaction %q: %w", r.ID, err)
		}
		txs = append(txs, t)
	}
	liabs := make([]core.Liability, 0, len(lRecs))
	for _, r := range lRecs {
		liabs = append(liabs, core.Liability{
			ID:             r.ID,
			Name:           r.Name,
			MonthlyPayment: amount(r.MonthlyPayment, "liability", r.ID),
			DueDay:         r.DueDate,
			Status:         core.LiabilityStatus(r.Status),
		})
	}
	contacts := make([]core.Contact, 0, len(cRecs))
	for _, r := range cRecs {
		contacts = append(contacts, core.Contact{ID: r.ID, Name: r.Name, Kind: core.ContactKind(r.Kind), Email: r.Email})
	}

	s := New()
	s.Seed(txs, liabs, contacts)
	return s, nil
}

func (r transactionRecord) toCore() (core.Transaction, error) {
	date, err := core.ParseDay(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:            r.ID,
		Type:          core.TransactionType(strings.ToUpper(r.Type)),
		Amount:        amount(r.Amount, "transaction", r.ID),
		Date:          date,
		Status:        core.TransactionStatus(strings.ToUpper(r.Status)),
		PaymentMethod: r.PaymentMethod,
		SubType:       core.CostType(r.SubType),
		ClientID:      r.ClientID,
		Description:   r.Description,
	}
	if r.DueDate != "" {
		due, err := core.ParseDay(r.DueDate)
		if err != nil {
			return core.Transaction{}, err
		}
		t.DueDate = &due
	}
	return t, nil
}

// amount reads a JSON number or numeric string. Anything else counts as zero.
func amount(raw json.RawMessage, kind, id string) decimal.Decimal {
	var s *string
	if len(raw) > 0 && string(raw) != "null" {
		v := strings.Trim(string(raw), `"`)
		s = &v
	}
	d, ok := core.AmountOrZero(s)
	if !ok {
		slog.Warn("Malformed amount coerced to zero", "kind", kind, "id", id, "raw", string(raw))
	}
	return d
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
