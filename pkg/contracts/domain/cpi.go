package domain

import (
	"math"
	"time"
)

// MonthlyRecord is one cleaned row of the CPI table: a month and the value of
// every category column for that month.
type MonthlyRecord struct {
	Date   time.Time          `json:"date"`
	Period string             `json:"period"`
	Values map[string]float64 `json:"values"`
}

// LongObservation is a single (date, category) cell of the long-form table.
type LongObservation struct {
	Date     time.Time `json:"date"`
	Category string    `json:"category"`
	Value    float64   `json:"value"`
}

// RebasedObservation is a LongObservation normalised against the category's
// value at the base month.
type RebasedObservation struct {
	LongObservation
	BaseValue float64 `json:"base_value"`
	Index100  float64 `json:"index_100"`
}

// Event is an annotation drawn on the chart at the anchor category's point
// for the given month.
type Event struct {
	Date   time.Time `json:"date"`
	Label  string    `json:"label"`
	Anchor string    `json:"anchor"`
}

// Missing returns the value used for an absent measurement.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v marks an absent measurement.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}
