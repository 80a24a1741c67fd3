package dataprocessing

import (
	"testing"
	"time"

	"twcpi/internal/shared/testutil"
)

// cpiExport is the two-category export: 16 months from 109年1月, 總指數
// reaching 110 at 110年4月.
func cpiExport() string {
	return testutil.CPIExport([]string{"總指數", "一.食物類"}, 16)
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	return testutil.WriteTempFile(t, "cpi_taiwan.csv", content)
}

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}
