package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"expenses/internal/core"
	"expenses/internal/ports"
	"expenses/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	kinds  []string
	ids    []int64
	failed bool
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, kind string, e core.Expense) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
	p.ids = append(p.ids, e.ID)
	if p.failed {
		return errors.New("broker unavailable")
	}
	return nil
}

func validInput() ExpenseInput {
	return ExpenseInput{
		Amount:   core.NewMoneyFromCents(1250),
		Category: "food",
		Date:     core.NewDate(2024, 3, 5),
	}
}

func TestExpenseService_CreateExpense(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	service := NewExpenseService(store, pub)

	saved, err := service.CreateExpense(context.Background(), 1, validInput())
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if saved.ID == 0 || saved.OwnerID != 1 {
		t.Errorf("unexpected saved expense: %+v", saved)
	}
	if len(pub.kinds) != 1 || pub.kinds[0] != ports.EventExpenseCreated || pub.ids[0] != saved.ID {
		t.Errorf("expected one created event for %d, got %v %v", saved.ID, pub.kinds, pub.ids)
	}
}

func TestExpenseService_CreateExpenseValidation(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	service := NewExpenseService(store, pub)

	in := validInput()
	in.Category = "   "
	_, err := service.CreateExpense(context.Background(), 1, in)

	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "category" {
		t.Fatalf("expected category validation error, got %v", err)
	}
	if store.Len() != 0 || len(pub.kinds) != 0 {
		t.Error("invalid input must not be stored or published")
	}
}

func TestExpenseService_PublishFailureDoesNotFail(t *testing.T) {
	store := memory.New()
	service := NewExpenseService(store, &recordingPublisher{failed: true})

	if _, err := service.CreateExpense(context.Background(), 1, validInput()); err != nil {
		t.Fatalf("publish failure leaked to caller: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected expense to be stored, got %d", store.Len())
	}
}

func TestExpenseService_NilPublisher(t *testing.T) {
	service := NewExpenseService(memory.New(), nil)

	if _, err := service.CreateExpense(context.Background(), 1, validInput()); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
}

func TestExpenseService_UpdateExpense(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &recordingPublisher{}
	service := NewExpenseService(store, pub)

	saved, _ := service.CreateExpense(ctx, 1, validInput())

	in := ExpenseInput{
		Amount:      core.NewMoneyFromCents(700),
		Category:    "rent",
		Description: "april",
		Date:        core.NewDate(2024, 4, 1),
	}
	updated, err := service.UpdateExpense(ctx, 1, saved.ID, in)
	if err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}

	got, err := service.GetExpense(ctx, 1, saved.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Amount.Cents() != 700 || got.Category != "rent" || got.Description != "april" || got.Date.String() != "2024-04-01" {
		t.Errorf("update not applied: %+v", got)
	}
	if updated.ID != saved.ID {
		t.Errorf("update changed id: %d -> %d", saved.ID, updated.ID)
	}
	if pub.kinds[len(pub.kinds)-1] != ports.EventExpenseUpdated {
		t.Errorf("expected updated event, got %v", pub.kinds)
	}

	if _, err := service.UpdateExpense(ctx, 2, saved.ID, validInput()); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign update: expected ErrNotFound, got %v", err)
	}
}

func TestExpenseService_DeleteExpense(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &recordingPublisher{}
	service := NewExpenseService(store, pub)

	saved, _ := service.CreateExpense(ctx, 1, validInput())

	t.Run("other owner gets not found", func(t *testing.T) {
		err := service.DeleteExpense(ctx, 2, saved.ID)
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if store.Len() != 1 {
			t.Error("ledger must be unchanged")
		}
		if _, err := service.GetExpense(ctx, 1, saved.ID); err != nil {
			t.Errorf("owner lost access: %v", err)
		}
	})

	t.Run("owner deletes", func(t *testing.T) {
		if err := service.DeleteExpense(ctx, 1, saved.ID); err != nil {
			t.Fatalf("DeleteExpense() error = %v", err)
		}
		if store.Len() != 0 {
			t.Error("expense should be gone")
		}
		if pub.kinds[len(pub.kinds)-1] != ports.EventExpenseDeleted {
			t.Errorf("expected deleted event, got %v", pub.kinds)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		if err := service.DeleteExpense(ctx, 1, 999); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
