package app

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"twcpi/pkg/contracts/domain"
)

// WriteDiagnostics prints the rebased rows at date as an aligned table:
// category, raw value, base value and index. Missing values print as NaN.
// At the base date every index with data reads 100.
func WriteDiagnostics(w io.Writer, table []domain.RebasedObservation, date time.Time) error {
	if _, err := fmt.Fprintf(w, "== %s ==\n", date.Format("2006-01")); err != nil {
		return err
	}

	var rows []domain.RebasedObservation
	for _, r := range table {
		if r.Date.Equal(date) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "category\tvalue\tbase_value\tindex_100")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.Category, diagValue(r.Value), diagValue(r.BaseValue), diagValue(r.Index100))
	}
	return tw.Flush()
}

func diagValue(v float64) string {
	if domain.IsMissing(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
