package dataprocessing

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "twcpi/internal/errors"
	"twcpi/pkg/contracts/domain"
)

func cleanExport(t *testing.T) *CleanResult {
	t.Helper()
	table, err := ReadTable(strings.NewReader(cpiExport()), DefaultLoadOptions())
	require.NoError(t, err)
	result, err := Clean(table, DefaultCleanOptions())
	require.NoError(t, err)
	return result
}

func TestClean(t *testing.T) {
	result := cleanExport(t)

	assert.Equal(t, []string{"總指數", "一.食物類"}, result.Categories)
	assert.Equal(t, []string{"Unnamed: 3", "指數基期"}, result.DroppedColumns)
	assert.Equal(t, 4, result.SkippedRows, "annual, two quarterly and the footnote row")
	assert.Equal(t, 0, result.InvalidCells)
	require.Len(t, result.Records, 16)

	first := result.Records[0]
	assert.True(t, month(2020, time.January).Equal(first.Date))
	assert.Equal(t, "109年1月", first.Period)
	assert.Equal(t, map[string]float64{"總指數": 95, "一.食物類": 90}, first.Values)

	last := result.Records[15]
	assert.True(t, month(2021, time.April).Equal(last.Date))
	assert.Equal(t, 110.0, last.Values["總指數"])

	for _, rec := range result.Records {
		assert.Equal(t, 1, rec.Date.Day())
		assert.NotContains(t, rec.Values, "統計期")
		assert.NotContains(t, rec.Values, "指數基期")
	}
}

func TestClean_MissingAndInvalidCells(t *testing.T) {
	table := &RawTable{
		Header: []string{"統計期", "總指數", "二.衣著類"},
		Rows: [][]string{
			{"109年1月", "1,001.5", "-"},
			{"109年2月", "", "n/a?"},
			{"109年3月", "NaN", "98"},
		},
	}

	result, err := Clean(table, DefaultCleanOptions())
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	assert.Equal(t, 1001.5, result.Records[0].Values["總指數"])
	assert.True(t, domain.IsMissing(result.Records[0].Values["二.衣著類"]))
	assert.True(t, domain.IsMissing(result.Records[1].Values["總指數"]))
	assert.True(t, domain.IsMissing(result.Records[1].Values["二.衣著類"]))
	assert.True(t, domain.IsMissing(result.Records[2].Values["總指數"]))
	assert.Equal(t, 98.0, result.Records[2].Values["二.衣著類"])
	assert.Equal(t, 1, result.InvalidCells)
}

func TestClean_FullWidthLabels(t *testing.T) {
	table := &RawTable{
		Header: []string{"統計期", "總指數"},
		Rows: [][]string{
			{"１０９年１月", "100"},
			{" 109年2月 ", "101"},
		},
	}

	result, err := Clean(table, DefaultCleanOptions())
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "109年1月", result.Records[0].Period)
	assert.True(t, month(2020, time.February).Equal(result.Records[1].Date))
}

func TestClean_Errors(t *testing.T) {
	tests := []struct {
		name    string
		table   *RawTable
		errType apperrors.ErrorType
	}{
		{
			name:    "nil table",
			table:   nil,
			errType: apperrors.ErrTypeSchema,
		},
		{
			name:    "period column absent",
			table:   &RawTable{Header: []string{"期間", "總指數"}, Rows: [][]string{{"109年1月", "100"}}},
			errType: apperrors.ErrTypeSchema,
		},
		{
			name:    "no data rows",
			table:   &RawTable{Header: []string{"統計期", "總指數"}},
			errType: apperrors.ErrTypeSchema,
		},
		{
			name: "no monthly rows",
			table: &RawTable{
				Header: []string{"統計期", "總指數"},
				Rows:   [][]string{{"109年", "100"}, {"110年第1季", "101"}},
			},
			errType: apperrors.ErrTypeSchema,
		},
		{
			name: "duplicate month",
			table: &RawTable{
				Header: []string{"統計期", "總指數"},
				Rows:   [][]string{{"109年1月", "100"}, {"109年01月", "100"}},
			},
			errType: apperrors.ErrTypeSchema,
		},
		{
			name: "monthly shape with impossible month",
			table: &RawTable{
				Header: []string{"統計期", "總指數"},
				Rows:   [][]string{{"109年1月", "100"}, {"109年13月", "101"}},
			},
			errType: apperrors.ErrTypeFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Clean(tt.table, DefaultCleanOptions())
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	first := cleanExport(t)

	// Rebuild a table that is already clean: no noise columns, only
	// monthly rows.
	table := &RawTable{Header: append([]string{"統計期"}, first.Categories...)}
	for _, rec := range first.Records {
		row := []string{rec.Period}
		for _, category := range first.Categories {
			row = append(row, formatCell(rec.Values[category]))
		}
		table.Rows = append(table.Rows, row)
	}

	second, err := Clean(table, DefaultCleanOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Categories, second.Categories)
	assert.Empty(t, second.DroppedColumns)
	assert.Zero(t, second.SkippedRows)
}

func TestUniqueColumnNames(t *testing.T) {
	got := uniqueColumnNames([]string{"統計期", "", " 總指數 ", "總指數", "", "總指數"})
	assert.Equal(t, []string{"統計期", "Unnamed: 1", "總指數", "總指數.1", "Unnamed: 4", "總指數.2"}, got)
}

func formatCell(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
