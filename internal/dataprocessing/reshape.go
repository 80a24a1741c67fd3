package dataprocessing

import (
	"sort"

	"twcpi/pkg/contracts/domain"
)

// ToLong turns each monthly record into one observation per category.
// Missing values are carried over as missing, never dropped, so the result
// always has len(records) * categories rows.
func ToLong(records []domain.MonthlyRecord) []domain.LongObservation {
	size := 0
	for _, rec := range records {
		size += len(rec.Values)
	}

	observations := make([]domain.LongObservation, 0, size)
	for _, rec := range records {
		for _, category := range sortedKeys(rec.Values) {
			observations = append(observations, domain.LongObservation{
				Date:     rec.Date,
				Category: category,
				Value:    rec.Values[category],
			})
		}
	}
	return observations
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
