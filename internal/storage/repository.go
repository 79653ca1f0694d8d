// Package storage is the SQLite ledger backend.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
	"consultcrm/internal/ledger"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const transactionColumns = `id, type, amount, date, due_date, status, payment_method, sub_type, client_id, description, created_at, updated_at`

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return t, err
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = r.now()
	t.UpdatedAt = t.CreatedAt

	_, err := r.db.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.Amount.StringFixed(2), t.Date.Format(core.ISODate), dueDateValue(t.DueDate),
		string(t.Status), t.PaymentMethod, string(t.SubType), t.ClientID, t.Description,
		t.CreatedAt.Format(timestampLayout), t.UpdatedAt.Format(timestampLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"status", t.Status,
		"amount", t.Amount.StringFixed(2))
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	existing, err := r.GetTransaction(ctx, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = r.now()

	_, err = r.db.ExecContext(ctx, `UPDATE transactions SET
		type = ?, amount = ?, date = ?, due_date = ?, status = ?, payment_method = ?,
		sub_type = ?, client_id = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		string(t.Type), t.Amount.StringFixed(2), t.Date.Format(core.ISODate), dueDateValue(t.DueDate),
		string(t.Status), t.PaymentMethod, string(t.SubType), t.ClientID, t.Description,
		t.UpdatedAt.Format(timestampLayout), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "transactions", id)
}

func (r *SQLiteRepository) ListLiabilities(ctx context.Context) ([]core.Liability, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, monthly_payment, due_date, status, created_at
		FROM personal_liabilities ORDER BY due_date, name`)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}
	defer rows.Close()

	var out []core.Liability
	for rows.Next() {
		var (
			l       core.Liability
			payment sql.NullString
			status  string
			created string
		)
		if err := rows.Scan(&l.ID, &l.Name, &payment, &l.DueDay, &status, &created); err != nil {
			return nil, fmt.Errorf("scan liability: %w", err)
		}
		l.MonthlyPayment = storedAmount(ctx, payment, "liability", l.ID)
		l.Status = core.LiabilityStatus(status)
		l.CreatedAt, _ = time.Parse(timestampLayout, created)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liabilities: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateLiability(ctx context.Context, l core.Liability) (core.Liability, error) {
	if err := l.Validate(); err != nil {
		return core.Liability{}, err
	}
	l.ID = uuid.NewString()
	l.CreatedAt = r.now()

	_, err := r.db.ExecContext(ctx, `INSERT INTO personal_liabilities (id, name, monthly_payment, due_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.MonthlyPayment.StringFixed(2), l.DueDay, string(l.Status), l.CreatedAt.Format(timestampLayout))
	if err != nil {
		return core.Liability{}, fmt.Errorf("insert liability: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) DeleteLiability(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "personal_liabilities", id)
}

func (r *SQLiteRepository) ListContacts(ctx context.Context) ([]core.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, kind, email, created_at FROM contacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []core.Contact
	for rows.Next() {
		var (
			c       core.Contact
			kind    string
			created string
		)
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.Email, &created); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.Kind = core.ContactKind(kind)
		c.CreatedAt, _ = time.Parse(timestampLayout, created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.now()

	_, err := r.db.ExecContext(ctx, `INSERT INTO contacts (id, name, kind, email, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Kind), c.Email, c.CreatedAt.Format(timestampLayout))
	if err != nil {
		return core.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// deleteByID removes one row; table is always a package constant.
func (r *SQLiteRepository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(ctx context.Context, s scanner) (core.Transaction, error) {
	var (
		t                          core.Transaction
		amount, due                sql.NullString
		typ, status, subType       string
		date, createdAt, updatedAt string
	)
	err := s.Scan(&t.ID, &typ, &amount, &date, &due, &status, &t.PaymentMethod, &subType,
		&t.ClientID, &t.Description, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	t.Type = core.TransactionType(typ)
	t.Status = core.TransactionStatus(status)
	t.SubType = core.CostType(subType)
	t.Amount = storedAmount(ctx, amount, "transaction", t.ID)
	if t.Date, err = core.ParseISODate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s date %q: %w", t.ID, date, err)
	}
	if due.Valid && due.String != "" {
		d, err := core.ParseISODate(due.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s due date %q: %w", t.ID, due.String, err)
		}
		t.DueDate = &d
	}
	t.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	t.UpdatedAt, _ = time.Parse(timestampLayout, updatedAt)
	return t, nil
}

func storedAmount(ctx context.Context, raw sql.NullString, kind, id string) decimal.Decimal {
	var p *string
	if raw.Valid {
		p = &raw.String
	}
	d, ok := core.AmountOrZero(p)
	if !ok {
		slog.WarnContext(ctx, "Malformed amount coerced to zero", "kind", kind, "id", id)
	}
	return d
}

func dueDateValue(due *time.Time) any {
	if due == nil || due.IsZero() {
		return nil
	}
	return due.Format(core.ISODate)
}
