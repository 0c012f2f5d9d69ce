// Package ledger answers paginated, filtered queries over an owner's
// expenses and derives totals, category rollups and monthly trends.
package ledger

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"expenses/internal/core"
	"expenses/internal/ports"
)

const (
	DefaultMaxPageSize = 50
	DefaultPageSize    = 5
)

// Page is one slice of a filtered ledger together with the size of the
// whole filtered set.
type Page struct {
	Total int            `json:"total"`
	Items []core.Expense `json:"expenses"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// Engine runs read-only queries against an expense store.
type Engine struct {
	store       ports.ExpenseStore
	maxPageSize int
}

// NewEngine creates an engine. A non-positive maxPageSize selects
// DefaultMaxPageSize.
func NewEngine(store ports.ExpenseStore, maxPageSize int) *Engine {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &Engine{store: store, maxPageSize: maxPageSize}
}

// MaxPageSize returns the largest accepted limit.
func (e *Engine) MaxPageSize() int {
	return e.maxPageSize
}

// Query returns page number page (1-based) of owner's expenses matching f,
// limit items per page, ordered by id. Total counts every match regardless
// of pagination.
func (e *Engine) Query(ctx context.Context, owner int64, f core.Filter, page, limit int) (Page, error) {
	if page < 1 {
		return Page{}, core.Invalid("page", core.ErrInvalidPage)
	}
	if limit < 1 || limit > e.maxPageSize {
		return Page{}, core.Invalid("limit", core.ErrInvalidLimit)
	}
	if err := f.Validate(); err != nil {
		return Page{}, err
	}

	// A page whose offset cannot be represented lies past every record.
	if page-1 > math.MaxInt/limit {
		total, err := e.Count(ctx, owner, f)
		if err != nil {
			return Page{}, err
		}
		return Page{Total: total, Items: []core.Expense{}, Page: page, Limit: limit}, nil
	}

	var (
		items []core.Expense
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = e.store.CountExpenses(gctx, owner, f)
		return core.StorageFailure("count expenses", err)
	})
	g.Go(func() error {
		var err error
		items, err = e.store.FindExpenses(gctx, owner, f, (page-1)*limit, limit)
		return core.StorageFailure("find expenses", err)
	})
	if err := g.Wait(); err != nil {
		return Page{}, err
	}

	if items == nil {
		items = []core.Expense{}
	}
	return Page{Total: total, Items: items, Page: page, Limit: limit}, nil
}

// Count returns the number of owner's expenses matching f.
func (e *Engine) Count(ctx context.Context, owner int64, f core.Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	n, err := e.store.CountExpenses(ctx, owner, f)
	return n, core.StorageFailure("count expenses", err)
}

// Summarize aggregates owner's entire ledger.
func (e *Engine) Summarize(ctx context.Context, owner int64) (core.Summary, error) {
	items, err := e.store.ListExpenses(ctx, owner)
	if err != nil {
		return core.Summary{}, core.StorageFailure("list expenses", err)
	}
	return Aggregate(items), nil
}

// Aggregate folds items into a summary. The result does not depend on the
// order of items: categories are sorted by name and months ascending.
func Aggregate(items []core.Expense) core.Summary {
	var total core.Money
	byCategory := make(map[string]core.Money)
	byMonth := make(map[string]core.Money)

	for _, it := range items {
		total = total.Add(it.Amount)
		byCategory[it.Category] = byCategory[it.Category].Add(it.Amount)
		month := it.Date.MonthKey()
		byMonth[month] = byMonth[month].Add(it.Amount)
	}

	s := core.Summary{
		Total:        total,
		ByCategory:   make([]core.CategoryAmount, 0, len(byCategory)),
		MonthlyTrend: make([]core.MonthAmount, 0, len(byMonth)),
	}
	for name, amount := range byCategory {
		s.ByCategory = append(s.ByCategory, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool { return s.ByCategory[i].Name < s.ByCategory[j].Name })

	for month, amount := range byMonth {
		s.MonthlyTrend = append(s.MonthlyTrend, core.MonthAmount{Month: month, Amount: amount})
	}
	// YYYY-MM keys sort lexically in calendar order.
	sort.Slice(s.MonthlyTrend, func(i, j int) bool { return s.MonthlyTrend[i].Month < s.MonthlyTrend[j].Month })

	return s
}
