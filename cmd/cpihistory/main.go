package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"twcpi/internal/app"
	"twcpi/internal/config"
	"twcpi/internal/dataprocessing"
	"twcpi/internal/storage"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run lists recent pipeline runs from the history ledger, or with -run
// prints one run's rebased values at a month
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cpihistory", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "YAML config file (defaults to config.yaml or configs/config.yaml)")
	dbPath := fs.String("db", "", "history database (defaults to history.db_path from the config)")
	limit := fs.Int("limit", 20, "number of runs to list")
	runID := fs.String("run", "", "run id whose table is printed")
	date := fs.String("date", "", "month to print for -run (defaults to the run's base month)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *dbPath == "" {
		cfg, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(stderr, "cpihistory: %v\n", err)
			return 1
		}
		*dbPath = cfg.History.DBPath
	}
	if *dbPath == "" {
		fmt.Fprintln(stderr, "cpihistory: no history database configured")
		return 1
	}
	if !config.FileExists(*dbPath) {
		fmt.Fprintf(stderr, "cpihistory: %s does not exist\n", *dbPath)
		return 1
	}

	repo, err := storage.NewHistoryRepository(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "cpihistory: %v\n", err)
		return 1
	}
	defer repo.Close()

	if *runID != "" {
		err = printRun(ctx, stdout, repo, *runID, *date)
	} else {
		err = listRuns(ctx, stdout, repo, *limit)
	}
	if err != nil {
		fmt.Fprintf(stderr, "cpihistory: %v\n", err)
		return 1
	}
	return 0
}

func listRuns(ctx context.Context, w io.Writer, repo *storage.HistoryRepository, limit int) error {
	runs, err := repo.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "run_id\tstarted_at\tstatus\tbase\trows\tmissing\tcategories")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.RunID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.BaseDate.Format("2006-01"),
			r.RebasedRows,
			r.MissingIndex,
			strings.Join(r.Categories, ","))
	}
	return tw.Flush()
}

func printRun(ctx context.Context, w io.Writer, repo *storage.HistoryRepository, runID, date string) error {
	rec, err := repo.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if rec.Status != storage.StatusSuccess {
		fmt.Fprintf(w, "run %s failed: %s\n", rec.RunID, rec.Error)
		return nil
	}

	month := rec.BaseDate
	if date != "" {
		if month, err = dataprocessing.ParseMonth(date); err != nil {
			return err
		}
	}

	table, err := repo.RunObservations(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s: %s -> %s\n", rec.RunID, rec.InputPath, rec.OutputPath)
	return app.WriteDiagnostics(w, table, month)
}
