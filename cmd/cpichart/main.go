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
	"strings"
	"syscall"

	"twcpi/internal/app"
	"twcpi/internal/config"
	"twcpi/internal/infrastructure"
	"twcpi/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses flags, runs the pipeline once and prints the diagnostic
// tables. Logs go to stderr so stdout holds only the report.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cpichart", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "YAML config file (defaults to config.yaml or configs/config.yaml)")
	input := fs.String("input", "", "CPI CSV export")
	output := fs.String("output", "", "PNG chart path")
	base := fs.String("base", "", "base month, YYYY-MM or ROC form such as 110年4月")
	categories := fs.String("categories", "", "comma-separated categories to draw, in legend order")
	diagnostic := fs.String("diagnostic", "", "month whose rebased values are printed")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "cpichart: %v\n", err)
		return 1
	}
	applyFlags(cfg, *input, *output, *base, *categories, *diagnostic)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "cpichart: %v\n", err)
		return 1
	}

	logger, err := infrastructure.InitializeLoggerWithWriter(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "cpichart: failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	logger.Info("Starting CPI chart",
		slog.Any("build", contracts.GetVersionInfo()),
		slog.String("input", cfg.Pipeline.InputPath),
		slog.String("output", cfg.Pipeline.OutputPath))

	result, err := app.Run(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "cpichart: %v\n", err)
		return 1
	}

	if err := printReport(stdout, cfg, result); err != nil {
		fmt.Fprintf(stderr, "cpichart: %v\n", err)
		return 1
	}
	return 0
}

// applyFlags overrides the loaded configuration with every flag that was set
func applyFlags(cfg *config.Config, input, output, base, categories, diagnostic string) {
	if input != "" {
		cfg.Pipeline.InputPath = input
	}
	if output != "" {
		cfg.Pipeline.OutputPath = output
	}
	if base != "" {
		cfg.Pipeline.BaseDate = base
	}
	if categories != "" {
		var list []string
		for _, c := range strings.Split(categories, ",") {
			if c = strings.TrimSpace(c); c != "" {
				list = append(list, c)
			}
		}
		cfg.Pipeline.Categories = list
	}
	if diagnostic != "" {
		cfg.Pipeline.DiagnosticDate = diagnostic
	}
}

// printReport prints the run summary, then the rebased rows at the
// diagnostic month and at the base month
func printReport(w io.Writer, cfg *config.Config, result *app.Result) error {
	fmt.Fprintf(w, "run %s: %d months, %d rows drawn, %d without index\n",
		result.RunID, result.Clean.Records, len(result.Table), result.MissingIndex)
	fmt.Fprintf(w, "chart: %s\n\n", cfg.Pipeline.OutputPath)

	diag, err := cfg.Pipeline.DiagnosticMonth()
	if err != nil {
		return err
	}
	if !diag.IsZero() {
		if err := app.WriteDiagnostics(w, result.Table, diag); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	base, err := cfg.Pipeline.BaseMonth()
	if err != nil {
		return err
	}
	return app.WriteDiagnostics(w, result.Table, base)
}
