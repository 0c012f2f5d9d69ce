package ports

import (
	"context"

	"expenses/internal/core"
)

// Ports for the storage adapters. Absent records are reported as
// core.ErrNotFound, backend failures as *core.StorageError.
type (
	// IdentityStore is the durable record of registered identities.
	IdentityStore interface {
		FindIdentityByEmail(ctx context.Context, email string) (core.Identity, error)
		FindIdentityByID(ctx context.Context, id int64) (core.Identity, error)
		// InsertIdentity fails with core.ErrDuplicateEmail if the email exists.
		InsertIdentity(ctx context.Context, id core.Identity) (core.Identity, error)
	}

	// ExpenseStore is the owner-keyed collection of transactions.
	ExpenseStore interface {
		InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// FindExpenses returns the filtered owner's expenses ordered by id.
		// A negative limit means no limit.
		FindExpenses(ctx context.Context, owner int64, f core.Filter, offset, limit int) ([]core.Expense, error)
		CountExpenses(ctx context.Context, owner int64, f core.Filter) (int, error)
		// FindExpense returns core.ErrNotFound when id is absent or owned by
		// someone else.
		FindExpense(ctx context.Context, id, owner int64) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, e core.Expense) error
		// ListExpenses returns every expense of owner, for full-scan reports.
		ListExpenses(ctx context.Context, owner int64) ([]core.Expense, error)
	}

	// Store is a backend providing both collections.
	Store interface {
		IdentityStore
		ExpenseStore
	}

	// EventPublisher receives ledger change notifications after a mutation
	// has been persisted.
	EventPublisher interface {
		PublishExpenseEvent(ctx context.Context, kind string, e core.Expense) error
	}
)

// Event kinds passed to EventPublisher.
const (
	EventExpenseCreated = "expense.created"
	EventExpenseUpdated = "expense.updated"
	EventExpenseDeleted = "expense.deleted"
)
