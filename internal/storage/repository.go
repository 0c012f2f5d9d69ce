package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expenses/internal/core"
	"expenses/internal/ports"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const identityColumns = "id, email, first_name, last_name, hashed_password, created_at"

// FindIdentityByEmail matches email exactly; sqlite's = on TEXT is case-sensitive.
func (r *SQLiteRepository) FindIdentityByEmail(ctx context.Context, email string) (core.Identity, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+identityColumns+" FROM users WHERE email = ?", email)
	id, err := scanIdentity(row)
	return id, core.StorageFailure("find identity by email", err)
}

func (r *SQLiteRepository) FindIdentityByID(ctx context.Context, id int64) (core.Identity, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+identityColumns+" FROM users WHERE id = ?", id)
	ident, err := scanIdentity(row)
	return ident, core.StorageFailure("find identity by id", err)
}

func (r *SQLiteRepository) InsertIdentity(ctx context.Context, ident core.Identity) (core.Identity, error) {
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = r.now()
	}
	ident.CreatedAt = ident.CreatedAt.UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, first_name, last_name, hashed_password, created_at) VALUES (?, ?, ?, ?, ?)",
		ident.Email, ident.FirstName, ident.LastName, ident.PasswordHash, ident.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Identity{}, core.ErrDuplicateEmail
		}
		return core.Identity{}, core.StorageFailure("insert identity", err)
	}
	ident.ID, err = res.LastInsertId()
	if err != nil {
		return core.Identity{}, core.StorageFailure("insert identity", err)
	}

	slog.InfoContext(ctx, "Identity saved to SQLite", "id", ident.ID)
	return ident, nil
}

const expenseColumns = "id, user_id, amount_cents, category, description, date"

// InsertExpense implements ports.ExpenseStore
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO expenses (user_id, amount_cents, category, description, date) VALUES (?, ?, ?, ?, ?)",
		e.OwnerID, e.Amount.Cents(), e.Category, e.Description, e.Date.String(),
	)
	if err != nil {
		return core.Expense{}, core.StorageFailure("insert expense", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, core.StorageFailure("insert expense", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"owner_id", e.OwnerID,
		"amount_cents", e.Amount.Cents(),
		"category", e.Category,
		"date", e.Date.String())

	return e, nil
}

// FindExpenses implements ports.ExpenseStore. SQLite treats LIMIT -1 as unbounded.
func (r *SQLiteRepository) FindExpenses(ctx context.Context, owner int64, f core.Filter, offset, limit int) ([]core.Expense, error) {
	where, args := whereClause(owner, f)
	if limit < 0 {
		limit = -1
	}
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE "+where+" ORDER BY id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, core.StorageFailure("find expenses", err)
	}
	defer rows.Close()

	expenses, err := scanExpenses(rows)
	return expenses, core.StorageFailure("find expenses", err)
}

func (r *SQLiteRepository) CountExpenses(ctx context.Context, owner int64, f core.Filter) (int, error) {
	where, args := whereClause(owner, f)
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses WHERE "+where, args...).Scan(&n)
	return n, core.StorageFailure("count expenses", err)
}

func (r *SQLiteRepository) FindExpense(ctx context.Context, id, owner int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND user_id = ?", id, owner)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	return e, core.StorageFailure("find expense", err)
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET amount_cents = ?, category = ?, description = ?, date = ? WHERE id = ? AND user_id = ?",
		e.Amount.Cents(), e.Category, e.Description, e.Date.String(), e.ID, e.OwnerID,
	)
	if err != nil {
		return core.Expense{}, core.StorageFailure("update expense", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Expense{}, core.StorageFailure("update expense", err)
	}

	slog.InfoContext(ctx, "Expense updated in SQLite", "id", e.ID, "owner_id", e.OwnerID)
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ? AND user_id = ?", e.ID, e.OwnerID)
	if err != nil {
		return core.StorageFailure("delete expense", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.StorageFailure("delete expense", err)
	}

	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", e.ID, "owner_id", e.OwnerID)
	return nil
}

// ListExpenses implements ports.ExpenseStore
func (r *SQLiteRepository) ListExpenses(ctx context.Context, owner int64) ([]core.Expense, error) {
	return r.FindExpenses(ctx, owner, core.Filter{}, 0, -1)
}

// whereClause always scopes by owner; category and each date bound are optional.
// Dates are stored as YYYY-MM-DD so text comparison orders them correctly.
func whereClause(owner int64, f core.Filter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{owner}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if !f.Start.IsEmpty() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.Start.String())
	}
	if !f.End.IsEmpty() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.End.String())
	}
	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (core.Identity, error) {
	var (
		id      core.Identity
		created int64
	)
	err := row.Scan(&id.ID, &id.Email, &id.FirstName, &id.LastName, &id.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Identity{}, core.ErrNotFound
	}
	if err != nil {
		return core.Identity{}, err
	}
	id.CreatedAt = time.Unix(created, 0).UTC()
	return id, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e     core.Expense
		cents int64
		date  string
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &cents, &e.Category, &e.Description, &date); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", e.ID, date, err)
	}
	e.Amount = core.NewMoneyFromCents(cents)
	e.Date = d
	return e, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	expenses := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

var _ ports.Store = (*SQLiteRepository)(nil)
