package exporter

import (
	"strconv"
	"time"

	"twcpi/pkg/contracts/domain"
)

// RebasedHeaders are the audit columns, shared by the CSV and XLSX writers
var RebasedHeaders = []string{"date", "category", "value", "base_value", "index_100"}

// formatFloat formats a value at full precision; missing values are empty
func formatFloat(f float64) string {
	if domain.IsMissing(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatDate formats a month as its first day
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// rebasedRecord is one audit row as text
func rebasedRecord(row domain.RebasedObservation) []string {
	return []string{
		formatDate(row.Date),
		row.Category,
		formatFloat(row.Value),
		formatFloat(row.BaseValue),
		formatFloat(row.Index100),
	}
}
