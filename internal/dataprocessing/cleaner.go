package dataprocessing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/unicode/norm"

	apperrors "twcpi/internal/errors"
	"twcpi/pkg/contracts/domain"
)

// placeholderColumnRe matches column names invented by spreadsheet exports
// for header cells that were left empty.
var placeholderColumnRe = regexp.MustCompile(`^Unnamed`)

// missingCells are cell contents that mean "no value" in the export.
var missingCells = map[string]bool{
	"":    true,
	"-":   true,
	"--":  true,
	"…":   true,
	"...": true,
	"NaN": true,
	"NA":  true,
	"N/A": true,
}

// CleanOptions names the columns the cleaner relies on.
type CleanOptions struct {
	// PeriodColumn holds the ROC period labels.
	PeriodColumn string
	// MetadataMarker identifies columns that describe the index base period
	// rather than hold a series.
	MetadataMarker string
}

// DefaultCleanOptions returns the column names of the DGBAS CPI export.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		PeriodColumn:   "統計期",
		MetadataMarker: "指數基期",
	}
}

// CleanResult is the monthly table plus counters describing what was removed.
type CleanResult struct {
	Records []domain.MonthlyRecord
	// Categories lists the category columns in header order.
	Categories     []string
	DroppedColumns []string
	// SkippedRows counts rows whose period was not a monthly label.
	SkippedRows int
	// InvalidCells counts non-empty cells that could not be read as numbers.
	InvalidCells int
}

// Clean drops placeholder and metadata columns, keeps only monthly rows and
// attaches the normalised date to each of them.
func Clean(table *RawTable, opts CleanOptions) (*CleanResult, error) {
	if table == nil {
		return nil, apperrors.NewSchemaError("no table to clean")
	}

	header := uniqueColumnNames(table.Header)

	periodIdx := -1
	for i, name := range header {
		if name == opts.PeriodColumn {
			periodIdx = i
			break
		}
	}
	if periodIdx < 0 {
		return nil, apperrors.NewSchemaError(fmt.Sprintf("period column %q not found", opts.PeriodColumn)).
			WithContext("columns", header)
	}

	result := &CleanResult{}
	keep := []string{opts.PeriodColumn}
	for i, name := range header {
		switch {
		case i == periodIdx:
		case placeholderColumnRe.MatchString(name):
			result.DroppedColumns = append(result.DroppedColumns, name)
		case opts.MetadataMarker != "" && strings.Contains(name, opts.MetadataMarker):
			result.DroppedColumns = append(result.DroppedColumns, name)
		default:
			keep = append(keep, name)
			result.Categories = append(result.Categories, name)
		}
	}

	if len(table.Rows) == 0 {
		return nil, apperrors.NewSchemaError("no monthly rows in table: table has no data rows")
	}

	records := make([][]string, 0, len(table.Rows)+1)
	records = append(records, header)
	for _, row := range table.Rows {
		r := make([]string, len(header))
		copy(r, row)
		r[periodIdx] = canonicalLabel(r[periodIdx])
		records = append(records, r)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeSchema, "failed to load table", df.Err)
	}

	df = df.Select(keep)
	if df.Err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeSchema, "failed to select columns", df.Err)
	}

	monthly := df.Filter(dataframe.F{
		Colname:    opts.PeriodColumn,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return IsMonthlyPeriod(el.String())
		},
	})
	if monthly.Err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeSchema, "no monthly rows in table", monthly.Err)
	}
	if monthly.Nrow() == 0 {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("no monthly rows in table: %d rows, none labelled <year>年<month>月", df.Nrow()))
	}
	result.SkippedRows = df.Nrow() - monthly.Nrow()

	seen := make(map[time.Time]string, monthly.Nrow())
	rows := monthly.Records()
	names := rows[0]
	for _, row := range rows[1:] {
		rec := domain.MonthlyRecord{Values: make(map[string]float64, len(names)-1)}
		for i, name := range names {
			if name == opts.PeriodColumn {
				date, err := NormalizePeriod(row[i])
				if err != nil {
					return nil, err
				}
				rec.Date = date
				rec.Period = row[i]
				continue
			}
			v, ok := parseCell(row[i])
			if !ok {
				result.InvalidCells++
			}
			rec.Values[name] = v
		}

		if prev, dup := seen[rec.Date]; dup {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("month %s appears twice", rec.Date.Format("2006-01"))).
				WithContext("periods", []string{prev, rec.Period})
		}
		seen[rec.Date] = rec.Period
		result.Records = append(result.Records, rec)
	}

	return result, nil
}

// canonicalLabel folds full-width digits and surrounding space so that
// "１０９年１月 " reads as "109年1月".
func canonicalLabel(s string) string {
	return strings.TrimSpace(norm.NFKC.String(strings.TrimSpace(s)))
}

// uniqueColumnNames names blank headers "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2", ... so every column can be addressed by name.
func uniqueColumnNames(header []string) []string {
	names := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n := counts[name]; n > 0 {
			counts[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			counts[name] = 1
		}
		names[i] = name
	}
	return names
}

// parseCell reads a numeric cell. The second result is false when the cell
// held something other than a number or a known missing marker.
func parseCell(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if missingCells[s] {
		return domain.Missing(), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return domain.Missing(), false
	}
	return v, true
}
