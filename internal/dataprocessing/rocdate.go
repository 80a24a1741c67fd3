package dataprocessing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "twcpi/internal/errors"
)

// rocYearOffset converts a Republic of China year to a Gregorian year.
const rocYearOffset = 1911

// monthlyPeriodRe matches period labels like "109年1月".
var monthlyPeriodRe = regexp.MustCompile(`^(\d+)年(\d+)月$`)

// NormalizePeriod converts an ROC monthly period label ("109年1月") to the
// first day of that month in UTC.
func NormalizePeriod(label string) (time.Time, error) {
	m := monthlyPeriodRe.FindStringSubmatch(label)
	if m == nil {
		return time.Time{}, apperrors.NewFormatError(
			fmt.Sprintf("period label %q does not match <year>年<month>月", label), nil)
	}

	rocYear, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, apperrors.NewFormatError(fmt.Sprintf("invalid ROC year in %q", label), err)
	}
	if rocYear <= 0 {
		return time.Time{}, apperrors.NewFormatError(
			fmt.Sprintf("invalid ROC year in %q", label), fmt.Errorf("year must be positive, got %d", rocYear))
	}

	month, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, apperrors.NewFormatError(fmt.Sprintf("invalid month in %q", label), err)
	}
	if month < 1 || month > 12 {
		return time.Time{}, apperrors.NewFormatError(
			fmt.Sprintf("invalid month in %q", label), fmt.Errorf("month must be 1-12, got %d", month))
	}

	return time.Date(rocYear+rocYearOffset, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// IsMonthlyPeriod reports whether label has the shape of a monthly period.
// It does not check the ranges of year and month.
func IsMonthlyPeriod(label string) bool {
	return monthlyPeriodRe.MatchString(label)
}

// ParseMonth parses a month given in configuration. Accepted forms are
// "2021-04", "2021-04-01" and the ROC label "110年4月".
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if IsMonthlyPeriod(s) {
		t, err := NormalizePeriod(s)
		if err != nil {
			return time.Time{}, apperrors.NewConfigError(fmt.Sprintf("invalid month %q", s), err)
		}
		return t, nil
	}

	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperrors.NewConfigError(
			fmt.Sprintf("invalid month %q: want YYYY-MM, YYYY-MM-01 or <year>年<month>月", s), err)
	}
	if t.Day() != 1 {
		return time.Time{}, apperrors.NewConfigError(
			fmt.Sprintf("invalid month %q: day must be 01", s), nil)
	}
	return t, nil
}
