// Package postgres is the PostgreSQL ledger backend built on a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"consultcrm/internal/core"
	"consultcrm/internal/ledger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Repository struct {
	pool *pgxpool.Pool
}

var _ ledger.Store = (*Repository)(nil)

// New connects to databaseURL, applies the schema and returns the repository.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := RunMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repository{pool: pool}, nil
}

// RunMigrations applies the embedded migrations through a database/sql view
// of the pool. The pool stays open.
func RunMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("create pgx migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const selectTransactions = `SELECT id::text, type, amount::text, date, due_date, status, payment_method,
	sub_type, client_id, description, created_at, updated_at FROM transactions`

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx, selectTransactions+` ORDER BY date, created_at`)
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

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Transaction{}, ledger.ErrNotFound
	}
	t, err := scanTransaction(ctx, r.pool.QueryRow(ctx, selectTransactions+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return t, err
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()

	err := r.pool.QueryRow(ctx, `INSERT INTO transactions
		(id, type, amount, date, due_date, status, payment_method, sub_type, client_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		t.ID, string(t.Type), t.Amount.StringFixed(2), core.StartOfDay(t.Date), dueDateArg(t.DueDate),
		string(t.Status), t.PaymentMethod, string(t.SubType), t.ClientID, t.Description,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to PostgreSQL", "id", t.ID, "type", t.Type, "status", t.Status)
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := uuid.Parse(t.ID); err != nil {
		return core.Transaction{}, ledger.ErrNotFound
	}

	err := r.pool.QueryRow(ctx, `UPDATE transactions SET
		type = $2, amount = $3, date = $4, due_date = $5, status = $6, payment_method = $7,
		sub_type = $8, client_id = $9, description = $10, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		t.ID, string(t.Type), t.Amount.StringFixed(2), core.StartOfDay(t.Date), dueDateArg(t.DueDate),
		string(t.Status), t.PaymentMethod, string(t.SubType), t.ClientID, t.Description,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM transactions WHERE id = $1`, id)
}

func (r *Repository) ListLiabilities(ctx context.Context) ([]core.Liability, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, monthly_payment::text, due_date, status, created_at
		FROM personal_liabilities ORDER BY due_date, name`)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}
	defer rows.Close()

	var out []core.Liability
	for rows.Next() {
		var (
			l       core.Liability
			payment *string
			dueDay  int16
			status  string
		)
		if err := rows.Scan(&l.ID, &l.Name, &payment, &dueDay, &status, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan liability: %w", err)
		}
		l.MonthlyPayment = storedAmount(ctx, payment, "liability", l.ID)
		l.DueDay = int(dueDay)
		l.Status = core.LiabilityStatus(status)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liabilities: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateLiability(ctx context.Context, l core.Liability) (core.Liability, error) {
	if err := l.Validate(); err != nil {
		return core.Liability{}, err
	}
	l.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `INSERT INTO personal_liabilities (id, name, monthly_payment, due_date, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		l.ID, l.Name, l.MonthlyPayment.StringFixed(2), int16(l.DueDay), string(l.Status),
	).Scan(&l.CreatedAt)
	if err != nil {
		return core.Liability{}, fmt.Errorf("insert liability: %w", err)
	}
	return l, nil
}

func (r *Repository) DeleteLiability(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM personal_liabilities WHERE id = $1`, id)
}

func (r *Repository) ListContacts(ctx context.Context) ([]core.Contact, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, kind, email, created_at FROM contacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []core.Contact
	for rows.Next() {
		var (
			c    core.Contact
			kind string
		)
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.Kind = core.ContactKind(kind)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	c.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `INSERT INTO contacts (id, name, kind, email) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		c.ID, c.Name, string(c.Kind), c.Email,
	).Scan(&c.CreatedAt)
	if err != nil {
		return core.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

func (r *Repository) deleteByID(ctx context.Context, stmt, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ledger.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func scanTransaction(ctx context.Context, row pgx.Row) (core.Transaction, error) {
	var (
		t                    core.Transaction
		amount               *string
		due                  *time.Time
		typ, status, subType string
	)
	err := row.Scan(&t.ID, &typ, &amount, &t.Date, &due, &status, &t.PaymentMethod, &subType,
		&t.ClientID, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	t.Status = core.TransactionStatus(status)
	t.SubType = core.CostType(subType)
	t.Amount = storedAmount(ctx, amount, "transaction", t.ID)
	t.DueDate = due
	return t, nil
}

func storedAmount(ctx context.Context, raw *string, kind, id string) decimal.Decimal {
	d, ok := core.AmountOrZero(raw)
	if !ok {
		slog.WarnContext(ctx, "Malformed amount coerced to zero", "kind", kind, "id", id)
	}
	return d
}

func dueDateArg(due *time.Time) *time.Time {
	if due == nil || due.IsZero() {
		return nil
	}
	d := core.StartOfDay(*due)
	return &d
}
