package services

import (
	"context"
	"log/slog"
	"strings"

	"expenses/internal/core"
	"expenses/internal/ports"
)

// ExpenseInput is the caller-editable part of an expense. Update replaces all
// four fields.
type ExpenseInput struct {
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

// ExpenseService orchestrates owner-scoped expense mutations and publishes a
// change event once each one is persisted.
type ExpenseService struct {
	store     ports.ExpenseStore
	publisher ports.EventPublisher
}

// NewExpenseService creates the service. publisher may be nil.
func NewExpenseService(store ports.ExpenseStore, publisher ports.EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
	}
}

// CreateExpense validates in and stores it for owner.
func (s *ExpenseService) CreateExpense(ctx context.Context, owner int64, in ExpenseInput) (core.Expense, error) {
	e := in.toExpense(owner)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, core.StorageFailure("insert expense", err)
	}

	s.publish(ctx, ports.EventExpenseCreated, saved)
	return saved, nil
}

// GetExpense returns expense id if owner owns it, core.ErrNotFound otherwise.
func (s *ExpenseService) GetExpense(ctx context.Context, owner, id int64) (core.Expense, error) {
	e, err := s.store.FindExpense(ctx, id, owner)
	if err != nil {
		return core.Expense{}, core.StorageFailure("find expense", err)
	}
	return e, nil
}

// UpdateExpense replaces amount, category, description and date of an
// expense owned by owner.
func (s *ExpenseService) UpdateExpense(ctx context.Context, owner, id int64, in ExpenseInput) (core.Expense, error) {
	e := in.toExpense(owner)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	existing, err := s.store.FindExpense(ctx, id, owner)
	if err != nil {
		return core.Expense{}, core.StorageFailure("find expense", err)
	}
	e.ID = existing.ID

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, core.StorageFailure("update expense", err)
	}

	s.publish(ctx, ports.EventExpenseUpdated, updated)
	return updated, nil
}

// DeleteExpense removes an expense owned by owner. Someone else's expense is
// reported as core.ErrNotFound and left untouched.
func (s *ExpenseService) DeleteExpense(ctx context.Context, owner, id int64) error {
	existing, err := s.store.FindExpense(ctx, id, owner)
	if err != nil {
		return core.StorageFailure("find expense", err)
	}

	if err := s.store.DeleteExpense(ctx, existing); err != nil {
		return core.StorageFailure("delete expense", err)
	}

	s.publish(ctx, ports.EventExpenseDeleted, existing)
	return nil
}

// publish never fails the caller; the mutation is already persisted.
func (s *ExpenseService) publish(ctx context.Context, kind string, e core.Expense) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "kind", kind)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, kind, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"kind", kind,
			"id", e.ID,
			"error", err)
	}
}

func (in ExpenseInput) toExpense(owner int64) core.Expense {
	return core.Expense{
		OwnerID:     owner,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	}
}
