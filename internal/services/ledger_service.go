package services

import (
	"context"
	"fmt"
	"log/slog"

	"consultcrm/internal/amqp"
	"consultcrm/internal/core"
	"consultcrm/internal/ledger"
	applog "consultcrm/internal/log"
)

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger writes across the store and AMQP. The
// store is the source of truth: once a write succeeds the request succeeds,
// whatever happens to the event.
type LedgerService struct {
	store     ledger.Store
	publisher EventPublisher
}

// NewLedgerService accepts a nil publisher; events are then skipped.
func NewLedgerService(store ledger.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.announce(ctx, amqp.EntityTransaction, created.ID, amqp.ActionCreated)
	return created, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.announce(ctx, amqp.EntityTransaction, updated.ID, amqp.ActionUpdated)
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.announce(ctx, amqp.EntityTransaction, id, amqp.ActionDeleted)
	return nil
}

func (s *LedgerService) ListLiabilities(ctx context.Context) ([]core.Liability, error) {
	return s.store.ListLiabilities(ctx)
}

func (s *LedgerService) CreateLiability(ctx context.Context, l core.Liability) (core.Liability, error) {
	created, err := s.store.CreateLiability(ctx, l)
	if err != nil {
		return core.Liability{}, fmt.Errorf("save liability: %w", err)
	}
	s.announce(ctx, amqp.EntityLiability, created.ID, amqp.ActionCreated)
	return created, nil
}

func (s *LedgerService) DeleteLiability(ctx context.Context, id string) error {
	if err := s.store.DeleteLiability(ctx, id); err != nil {
		return fmt.Errorf("delete liability: %w", err)
	}
	s.announce(ctx, amqp.EntityLiability, id, amqp.ActionDeleted)
	return nil
}

func (s *LedgerService) ListContacts(ctx context.Context) ([]core.Contact, error) {
	return s.store.ListContacts(ctx)
}

func (s *LedgerService) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	created, err := s.store.CreateContact(ctx, c)
	if err != nil {
		return core.Contact{}, fmt.Errorf("save contact: %w", err)
	}
	s.announce(ctx, amqp.EntityContact, created.ID, amqp.ActionCreated)
	return created, nil
}

func (s *LedgerService) announce(ctx context.Context, entity amqp.Entity, id string, action amqp.Action) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogLedgerChange(ctx, string(entity), id, string(action))
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger event", "entity", entity, "id", id)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(entity, id, action)); err != nil {
		// The write is already committed.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEntity, entity, applog.FieldEntityID, id, applog.FieldOperation, action, applog.FieldError, err)
	}
}

// Ping checks the store is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes the store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger store: %w", err)
	}
	return nil
}
