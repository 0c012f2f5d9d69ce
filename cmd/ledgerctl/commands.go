package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"expenses/internal/auth"
	"expenses/internal/cli"
	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/password"
	"expenses/internal/services"
	"expenses/internal/storage"
)

// fail prints err and reports a failed command.
func (e *env) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(e.stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func (e *env) open(dbPath string) (*storage.SQLiteRepository, error) {
	return cli.OpenSQLite(e.logger, dbPath)
}

// owner resolves the user an operation acts for.
func owner(ctx context.Context, repo *storage.SQLiteRepository, email string) (core.Identity, error) {
	if email == "" {
		return core.Identity{}, errors.New("missing required flag: -email")
	}
	ident, err := repo.FindIdentityByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.Identity{}, fmt.Errorf("no user registered with email %s", email)
	}
	return ident, err
}

type adduserCmd struct {
	*env
	db        string
	email     string
	firstName string
	lastName  string
	password  string
	cost      int
}

func (*adduserCmd) Name() string     { return "adduser" }
func (*adduserCmd) Synopsis() string { return "register a user" }
func (*adduserCmd) Usage() string {
	return `ledgerctl adduser -email <email> -first <name> -last <name> [-password <pw>] [-db <path>]

  Registers a user. The password is prompted for when omitted.
`
}

func (c *adduserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", c.cfg.SQLiteDBPath, "Path to the SQLite database.")
	f.StringVar(&c.email, "email", "", "Email address, used as the login name.")
	f.StringVar(&c.firstName, "first", "", "First name.")
	f.StringVar(&c.lastName, "last", "", "Last name.")
	f.StringVar(&c.password, "password", "", "Password (optional, will prompt if omitted).")
	f.IntVar(&c.cost, "cost", c.cfg.BcryptCost, "bcrypt cost factor.")
}

func (c *adduserCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	pw := c.password
	if pw == "" {
		fmt.Fprint(c.stdout, "Password: ")
		var err error
		pw, err = readPassword(c.stdin)
		if err != nil {
			return c.fail(fmt.Errorf("failed to read password: %w", err))
		}
		fmt.Fprintln(c.stdout)
	}

	repo, err := c.open(c.db)
	if err != nil {
		return c.fail(err)
	}
	defer repo.Close()

	svc := auth.NewService(repo, password.NewBcryptHasher(c.cost), nil)
	ident, err := svc.Register(ctx, auth.RegisterRequest{
		Email:     c.email,
		FirstName: c.firstName,
		LastName:  c.lastName,
		Password:  pw,
	})
	if errors.Is(err, core.ErrDuplicateEmail) {
		return c.fail(fmt.Errorf("user %s already exists", c.email))
	}
	if err != nil {
		return c.fail(err)
	}

	fmt.Fprintf(c.stdout, "User %s created successfully with ID %d\n", ident.Email, ident.ID)
	return subcommands.ExitSuccess
}

type migrateCmd struct {
	*env
	db string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate [-db <path>]
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", c.cfg.SQLiteDBPath, "Path to the SQLite database.")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := storage.RunMigrations(c.db); err != nil {
		return c.fail(err)
	}
	version, dirty, err := storage.SchemaVersion(c.db)
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.stdout, "Schema at version %d (dirty: %t)\n", version, dirty)
	return subcommands.ExitSuccess
}

type addCmd struct {
	*env
	db          string
	email       string
	amount      string
	category    string
	date        string
	description string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an expense" }
func (*addCmd) Usage() string {
	return `ledgerctl add -email <email> -amount <12.50> -category <name> -date <YYYY-MM-DD> [-description <text>]
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", c.cfg.SQLiteDBPath, "Path to the SQLite database.")
	f.StringVar(&c.email, "email", "", "Owner of the expense.")
	f.StringVar(&c.amount, "amount", "", "Amount, dot or comma as decimal separator.")
	f.StringVar(&c.category, "category", "", "Category.")
	f.StringVar(&c.date, "date", "", "Date of the expense.")
	f.StringVar(&c.description, "description", "", "Optional description.")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseMoney(c.amount)
	if err != nil {
		return c.fail(core.Invalid("amount", err))
	}
	date, err := core.ParseDate(c.date)
	if err != nil {
		return c.fail(core.Invalid("date", err))
	}

	repo, err := c.open(c.db)
	if err != nil {
		return c.fail(err)
	}
	defer repo.Close()

	ident, err := owner(ctx, repo, c.email)
	if err != nil {
		return c.fail(err)
	}

	saved, err := services.NewExpenseService(repo, nil).CreateExpense(ctx, ident.ID, services.ExpenseInput{
		Amount:      amount,
		Category:    c.category,
		Description: c.description,
		Date:        date,
	})
	if err != nil {
		return c.fail(err)
	}

	fmt.Fprintf(c.stdout, "Expense %d added: %s %s on %s\n", saved.ID, saved.Amount, saved.Category, saved.Date)
	return subcommands.ExitSuccess
}

type listCmd struct {
	*env
	db       string
	email    string
	page     int
	limit    int
	category string
	start    string
	end      string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "print one page of a user's ledger" }
func (*listCmd) Usage() string {
	return `ledgerctl list -email <email> [-page N] [-limit N] [-category <name>] [-s <start>] [-e <end>]
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", c.cfg.SQLiteDBPath, "Path to the SQLite database.")
	f.StringVar(&c.email, "email", "", "Owner of the ledger.")
	f.IntVar(&c.page, "page", 1, "Page number, starting at 1.")
	f.IntVar(&c.limit, "limit", c.cfg.DefaultPageSize, "Records per page.")
	f.StringVar(&c.category, "category", "", "Only this category.")
	f.StringVar(&c.start, "s", "", "Inclusive start date.")
	f.StringVar(&c.end, "e", "", "Inclusive end date.")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter := core.Filter{Category: strings.TrimSpace(c.category)}
	for _, b := range []struct {
		field string
		raw   string
		dst   *core.Date
	}{{"start_date", c.start, &filter.Start}, {"end_date", c.end, &filter.End}} {
		if b.raw == "" {
			continue
		}
		d, err := core.ParseDate(b.raw)
		if err != nil {
			return c.fail(core.Invalid(b.field, err))
		}
		*b.dst = d
	}

	repo, err := c.open(c.db)
	if err != nil {
		return c.fail(err)
	}
	defer repo.Close()

	ident, err := owner(ctx, repo, c.email)
	if err != nil {
		return c.fail(err)
	}

	page, err := ledger.NewEngine(repo, c.cfg.MaxPageSize).Query(ctx, ident.ID, filter, c.page, c.limit)
	if err != nil {
		return c.fail(err)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, x := range page.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", x.ID, x.Date, x.Category, x.Amount, x.Description)
	}
	w.Flush()
	fmt.Fprintf(c.stdout, "Page %d, %d of %d records\n", page.Page, len(page.Items), page.Total)
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	*env
	db    string
	email string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print totals by category and by month" }
func (*summaryCmd) Usage() string {
	return `ledgerctl summary -email <email> [-db <path>]
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", c.cfg.SQLiteDBPath, "Path to the SQLite database.")
	f.StringVar(&c.email, "email", "", "Owner of the ledger.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	repo, err := c.open(c.db)
	if err != nil {
		return c.fail(err)
	}
	defer repo.Close()

	ident, err := owner(ctx, repo, c.email)
	if err != nil {
		return c.fail(err)
	}

	summary, err := ledger.NewEngine(repo, c.cfg.MaxPageSize).Summarize(ctx, ident.ID)
	if err != nil {
		return c.fail(err)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total\t%s\n\n", summary.Total)
	fmt.Fprintln(w, "CATEGORY\tAMOUNT")
	for _, cat := range summary.ByCategory {
		fmt.Fprintf(w, "%s\t%s\n", cat.Name, cat.Amount)
	}
	fmt.Fprintln(w, "\nMONTH\tAMOUNT")
	for _, m := range summary.MonthlyTrend {
		fmt.Fprintf(w, "%s\t%s\n", m.Month, m.Amount)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
