// Package dataprocessing turns the DGBAS consumer price index CSV export into
// a rebased long-form series.
//
// # Architecture
//
// The package is organized into four steps, each a pure function over the
// output of the previous one:
//
// 1. Loader: ReadTable/LoadFile decode the export (UTF-8 or Big5) and split
// off the header row
// 2. Cleaner: Clean drops placeholder and index-base-period columns, keeps
// monthly rows and converts ROC period labels with NormalizePeriod
// 3. Reshaper: ToLong pivots the wide table into one row per month and
// category
// 4. Rebaser: Rebase expresses each category relative to a base month = 100
//
// # Usage
//
//	table, err := dataprocessing.LoadFile("data/cpi_taiwan.csv", dataprocessing.DefaultLoadOptions())
//	if err != nil {
//	    return err
//	}
//	cleaned, err := dataprocessing.Clean(table, dataprocessing.DefaultCleanOptions())
//	if err != nil {
//	    return err
//	}
//	rows, err := dataprocessing.Rebase(dataprocessing.ToLong(cleaned.Records), base, categories)
//
// # Data Flow
//
//	CSV → RawTable → MonthlyRecords → LongObservations → RebasedObservations
//
// # Error Handling
//
// Errors are *errors.AppError values from twcpi/internal/errors:
//
//   - FORMAT: a period label could not be converted to a date
//   - SCHEMA: the period column is missing, or no monthly rows remain
//   - CONFIG: rebase parameters are unusable (no categories, base month
//     outside the data)
//
// Rows that are not monthly (annual, quarterly, footnotes) are not errors;
// they are counted in CleanResult.SkippedRows.
package dataprocessing
