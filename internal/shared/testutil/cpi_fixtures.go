package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// CPIExport builds a CSV shaped like the DGBAS consumer price index
// download: two title rows, the header on row 3, a blank placeholder column
// and an index base period column after the categories, an annual row, one
// first-quarter row per year and a footnote.
//
// Monthly rows start at 109年1月 (2020-01). The first category is 95+i for
// the i-th month, so with 16 months it reaches 110 at 110年4月 (2021-04).
// Category c > 0 is 90 + 0.5*i + 2*(c-1).
func CPIExport(categories []string, months int) string {
	width := len(categories) + 3
	var b strings.Builder

	writeRow := func(cells ...string) {
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	titleRow := func(title string) {
		cells := make([]string, width)
		cells[0] = title
		writeRow(cells...)
	}

	titleRow("消費者物價指數")
	titleRow("資料來源：行政院主計總處")
	writeRow(append(append([]string{"統計期"}, categories...), "", "指數基期")...)

	annual := []string{"109年"}
	for c := range categories {
		if c == 0 {
			annual = append(annual, "98.5")
		} else {
			annual = append(annual, "99.1")
		}
	}
	writeRow(append(annual, "", "110年=100")...)

	for i := 0; i < months; i++ {
		year := 109 + i/12
		month := i%12 + 1
		row := []string{strconv.Itoa(year) + "年" + strconv.Itoa(month) + "月"}
		for c := range categories {
			row = append(row, formatValue(CPIValue(c, i)))
		}
		writeRow(append(row, "", "110年=100")...)

		if month == 3 {
			quarter := []string{strconv.Itoa(year) + "年第1季", formatValue(96 + float64(i))}
			for c := 1; c < len(categories); c++ {
				quarter = append(quarter, "")
			}
			writeRow(append(quarter, "", "110年=100")...)
		}
	}

	titleRow("註：本表為初步統計")
	return b.String()
}

// CPIValue is the value CPIExport writes for category c in month i
func CPIValue(c, i int) float64 {
	if c == 0 {
		return 95 + float64(i)
	}
	return 90 + 0.5*float64(i) + 2*float64(c-1)
}

// WriteCPIExport writes a CPIExport file into a fresh temp directory and
// returns its path
func WriteCPIExport(t *testing.T, categories []string, months int) string {
	t.Helper()
	return WriteTempFile(t, "cpi_taiwan.csv", CPIExport(categories, months))
}

// WriteTempFile writes content to name inside a fresh temp directory
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
