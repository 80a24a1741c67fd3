package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"time"

	apperrors "twcpi/internal/errors"
	"twcpi/pkg/contracts/domain"
)

// Rebase expresses every requested category as an index with the value at
// baseDate set to 100. Categories without a usable value at baseDate get a
// missing index on every row. Rows are ordered by date, then by the order of
// categories. Requested categories that do not occur produce no rows.
func Rebase(observations []domain.LongObservation, baseDate time.Time, categories []string) ([]domain.RebasedObservation, error) {
	if len(categories) == 0 {
		return nil, apperrors.NewConfigError("no categories requested", nil)
	}
	if len(observations) == 0 {
		return nil, apperrors.NewConfigError("no observations to rebase", nil)
	}

	earliest, latest := observations[0].Date, observations[0].Date
	for _, obs := range observations[1:] {
		if obs.Date.Before(earliest) {
			earliest = obs.Date
		}
		if obs.Date.After(latest) {
			latest = obs.Date
		}
	}
	if baseDate.Before(earliest) || baseDate.After(latest) {
		return nil, apperrors.NewConfigError(fmt.Sprintf("base date %s outside data range %s to %s",
			baseDate.Format("2006-01-02"), earliest.Format("2006-01-02"), latest.Format("2006-01-02")), nil)
	}

	rank := make(map[string]int, len(categories))
	for i, category := range categories {
		if _, ok := rank[category]; !ok {
			rank[category] = i
		}
	}

	base := make(map[string]float64, len(categories))
	for _, obs := range observations {
		if _, wanted := rank[obs.Category]; wanted && obs.Date.Equal(baseDate) {
			base[obs.Category] = obs.Value
		}
	}

	rebased := make([]domain.RebasedObservation, 0, len(observations))
	for _, obs := range observations {
		if _, wanted := rank[obs.Category]; !wanted {
			continue
		}

		row := domain.RebasedObservation{
			LongObservation: obs,
			BaseValue:       domain.Missing(),
			Index100:        domain.Missing(),
		}
		if b, ok := base[obs.Category]; ok {
			row.BaseValue = b
			if b != 0 && !math.IsNaN(b) && !math.IsInf(b, 0) {
				row.Index100 = obs.Value / b * 100
			}
		}
		rebased = append(rebased, row)
	}

	sort.SliceStable(rebased, func(i, j int) bool {
		if !rebased[i].Date.Equal(rebased[j].Date) {
			return rebased[i].Date.Before(rebased[j].Date)
		}
		return rank[rebased[i].Category] < rank[rebased[j].Category]
	})

	return rebased, nil
}
