// Command migrate applies and reverts schema changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up [version] | down [batches] | reset | status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.SetLogger(observability.NewLogger(cfg.Env, cfg.LogLevel))

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	m, err := database.NewMigrator(db)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		var upTo uint
		if flag.NArg() > 1 {
			v, err := strconv.ParseUint(flag.Arg(1), 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
			}
			upTo = uint(v)
		}
		res, err := m.Apply(ctx, upTo)
		if err != nil {
			return fmt.Errorf("apply failed: %w", err)
		}
		if len(res.Versions) == 0 {
			log.Println("schema is up to date")
			return nil
		}
		log.Printf("applied batch %d: %v", res.Batch, res.Versions)
	case "down":
		steps := 1
		if flag.NArg() > 1 {
			steps, err = strconv.Atoi(flag.Arg(1))
			if err != nil || steps < 1 {
				return fmt.Errorf("invalid batch count %q", flag.Arg(1))
			}
		}
		results, err := m.Rollback(ctx, steps)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		for _, r := range results {
			log.Printf("reverted batch %d: %v", r.Batch, r.Versions)
		}
		if len(results) == 0 {
			log.Println("nothing to roll back")
		}
	case "reset":
		results, err := m.Reset(ctx)
		if err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		log.Printf("reverted %d batches; schema is empty", len(results))
	case "status":
		statuses, err := m.Status(ctx)
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tBATCH\tAPPLIED AT")
		for _, st := range statuses {
			if !st.Applied {
				fmt.Fprintf(w, "%06d\t%s\t-\tpending\n", st.Version, st.Name)
				continue
			}
			appliedAt := ""
			if st.AppliedAt != nil {
				appliedAt = st.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%06d\t%s\t%d\t%s\n", st.Version, st.Name, st.Batch, appliedAt)
		}
		return w.Flush()
	default:
		return usage()
	}
	return nil
}
