package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
	"consultcrm/internal/ledger"
)

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.CreateTransaction(ctx, core.Transaction{
		Type:   core.Income,
		Amount: decimal.NewFromInt(120),
		Date:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Status: core.Pending,
	})
	if err != nil || created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("unexpected create: %+v err=%v", created, err)
	}

	created.Status = core.Paid
	updated, err := s.UpdateTransaction(ctx, created)
	if err != nil || updated.Status != core.Paid || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected update: %+v err=%v", updated, err)
	}

	got, err := s.GetTransaction(ctx, created.ID)
	if err != nil || got.Status != core.Paid {
		t.Fatalf("unexpected get: %+v err=%v", got, err)
	}

	if err := s.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, created.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, created.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.CreateTransaction(ctx, core.Transaction{Type: "GIFT"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := s.CreateLiability(ctx, core.Liability{Name: "", MonthlyPayment: decimal.NewFromInt(1), Status: core.UpToDate}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := s.CreateContact(ctx, core.Contact{Name: "X", Kind: "VENDOR"}); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	txs, _ := s.ListTransactions(ctx)
	if len(txs) != 0 {
		t.Fatalf("invalid records were stored: %+v", txs)
	}
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.CreateLiability(ctx, core.Liability{Name: "Rent", MonthlyPayment: decimal.NewFromInt(900), DueDay: 15, Status: core.UpToDate}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, _ := s.ListLiabilities(ctx)
	list[0].Name = "changed"

	again, _ := s.ListLiabilities(ctx)
	if again[0].Name != "Rent" {
		t.Fatalf("store was mutated through the listed slice")
	}
	if err := s.DeleteLiability(ctx, again[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("missing files should be fine: %v", err)
	}
	txs, _ := s.ListTransactions(context.Background())
	if len(txs) != 0 {
		t.Fatalf("expected empty store, got %d", len(txs))
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite(TransactionsFile, `[
		{"id":"t1","type":"income","amount":1500.5,"date":"2025-01-03","status":"paid","clientId":"c1"},
		{"id":"t2","type":"EXPENSE","amount":"300","date":"2025-01-04T10:00:00Z","dueDate":"2025-02-01","status":"PENDING","subType":"BUSINESS_FIXED"},
		{"id":"t3","type":"EXPENSE","amount":"n/a","date":"2025-01-05","status":"PAID"},
		{"type":"INCOME","date":"2025-01-06","status":"PAID","paymentMethod":"CANJE"}
	]`)
	mustWrite(LiabilitiesFile, `[{"id":"l1","name":"Loan","monthlyPayment":900,"dueDate":15,"status":"UP_TO_DATE"}]`)
	mustWrite(ContactsFile, `[{"id":"c1","name":"Acme","type":"CLIENT"}]`)

	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("NewFromFiles: %v", err)
	}
	ctx := context.Background()
	txs, _ = s.ListTransactions(ctx)
	if len(txs) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(txs))
	}
	if txs[0].Type != core.Income || txs[0].Status != core.Paid || !txs[0].Amount.Equal(decimal.RequireFromString("1500.5")) {
		t.Errorf("unexpected first transaction: %+v", txs[0])
	}
	if txs[1].DueDate == nil || txs[1].DueDate.Month() != time.February {
		t.Errorf("due date not parsed: %+v", txs[1].DueDate)
	}
	if !txs[2].Amount.IsZero() || !txs[3].Amount.IsZero() {
		t.Errorf("malformed amounts should be zero: %s, %s", txs[2].Amount, txs[3].Amount)
	}
	if txs[3].ID == "" {
		t.Errorf("seeded record without id should get one")
	}

	liabs, _ := s.ListLiabilities(ctx)
	if len(liabs) != 1 || liabs[0].DueDay != 15 || !liabs[0].MonthlyPayment.Equal(decimal.NewFromInt(900)) {
		t.Errorf("unexpected liabilities: %+v", liabs)
	}
	contacts, _ := s.ListContacts(ctx)
	if len(contacts) != 1 || contacts[0].Kind != core.Client {
		t.Errorf("unexpected contacts: %+v", contacts)
	}
}

func TestNewFromFilesRejectsCorruptJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TransactionsFile), []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatalf("expected decode error")
	}
}
