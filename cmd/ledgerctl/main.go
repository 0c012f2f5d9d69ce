// Command ledgerctl administers an expenses SQLite database: it creates
// users, applies migrations and prints ledgers and summaries.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/log"
)

func main() {
	cli.LoadEnvFile()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// env carries what every subcommand needs.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *log.Logger
	cfg    *config.Config
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Load()
	e := &env{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: cli.SetupLogger(slog.LevelWarn, log.ComponentCLI, stderr),
		cfg:    cfg,
	}

	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	commander := subcommands.NewCommander(fs, "ledgerctl")
	commander.Output = stdout
	commander.Error = stderr

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&adduserCmd{env: e}, "users")
	commander.Register(&migrateCmd{env: e}, "database")
	commander.Register(&addCmd{env: e}, "ledger")
	commander.Register(&listCmd{env: e}, "ledger")
	commander.Register(&summaryCmd{env: e}, "ledger")

	if err := fs.Parse(args); err != nil {
		return int(subcommands.ExitUsageError)
	}
	return int(commander.Execute(ctx))
}
