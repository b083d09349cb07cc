// Command sessionctl manages the session table and the stored sessions.
//
// Usage:
//
//	sessionctl [-config file] migrate up|down|status|fresh [-steps n]
//	sessionctl [-config file] clear
//
// Settings come from the config file and SESSIONSTORE_* variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/creastat/sessionstore"
	"github.com/creastat/sessionstore/config"
	"github.com/creastat/sessionstore/internal/logging"
	"github.com/creastat/sessionstore/migration"
)

var errUsage = errors.New("usage: sessionctl [-config file] migrate up|down|status|fresh [-steps n] | clear")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "sessionctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a JSON config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}

	opened, err := sessionstore.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer opened.Close()

	switch rest[0] {
	case "migrate":
		if opened.SQL == nil {
			return fmt.Errorf("migrate needs the sql store, configured store is %q", cfg.Store)
		}
		return migrate(ctx, opened.SQL, cfg, logger, rest[1:], stdout)
	case "clear":
		if err := opened.Store.Clear(ctx); err != nil {
			return err
		}
		logger.Info("cleared session store", "store", cfg.Store)
		return nil
	default:
		return errUsage
	}
}

func migrate(ctx context.Context, h *sessionstore.SQLHandle, cfg *config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	fs := flag.NewFlagSet("migrate "+args[0], flag.ContinueOnError)
	steps := fs.Int("steps", 0, "number of migrations to apply or revert, 0 for all")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	m, err := migration.New(h.DB, h.Dialect,
		migration.WithMigrations(migration.SessionTable(cfg.Table)),
		migration.WithHistoryTable(cfg.Database.HistoryTable),
		migration.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		names, err := m.Up(ctx, *steps)
		logger.Info("migrations applied", "count", len(names))
		return err
	case "down":
		names, err := m.Down(ctx, *steps)
		logger.Info("migrations reverted", "count", len(names))
		return err
	case "fresh":
		return m.Fresh(ctx)
	case "status":
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MIGRATION\tSTATUS\tAPPLIED AT")
		for _, st := range statuses {
			state, at := "pending", "-"
			if st.Applied {
				state, at = "applied", st.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Name, state, at)
		}
		return tw.Flush()
	default:
		return errUsage
	}
}
