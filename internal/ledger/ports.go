// Package ledger declares the ports the finance services read from and write
// to. Backends live in ledger/memory, storage and storage/postgres.
package ledger

import (
	"context"
	"errors"

	"consultcrm/internal/core"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("not found")

type (
	TransactionReader interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// TransactionWriter persists transactions. Create assigns the id and the
	// timestamps; Update keeps CreatedAt.
	TransactionWriter interface {
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	LiabilityReader interface {
		ListLiabilities(ctx context.Context) ([]core.Liability, error)
	}

	LiabilityWriter interface {
		CreateLiability(ctx context.Context, l core.Liability) (core.Liability, error)
		DeleteLiability(ctx context.Context, id string) error
	}

	ContactReader interface {
		ListContacts(ctx context.Context) ([]core.Contact, error)
	}

	ContactWriter interface {
		CreateContact(ctx context.Context, c core.Contact) (core.Contact, error)
	}

	// Store is the full ledger backend.
	Store interface {
		TransactionReader
		TransactionWriter
		LiabilityReader
		LiabilityWriter
		ContactReader
		ContactWriter
		Ping(ctx context.Context) error
		Close() error
	}
)
