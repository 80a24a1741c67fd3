// Package app runs the CPI chart pipeline end to end.
//
// An Application holds the validated configuration and every component a
// run needs: the file validator, the chart renderer, the audit exporters,
// OpenTelemetry providers and the optional run history ledger.
//
// # Run Flow
//
//  1. Validate the input file and every output location
//  2. Load the CSV export and clean it
//  3. Reshape to long form
//  4. Rebase the configured categories against the base month
//  5. Render the PNG chart
//  6. Write the audit CSV and workbook, when configured
//
// Each stage runs once, inside its own span, and its duration is recorded
// in the cpi_stage_duration_seconds histogram. A cancelled context stops
// the run between stages.
//
// The run id is a UUID placed in the context; every log line of the run
// carries it as trace_id.
//
// # Usage
//
//	result, err := app.Run(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	app.WriteDiagnostics(os.Stdout, result.Table, base)
package app
