package inspection

import (
	"math"
	"time"
)

const (
	day         = 24 * time.Hour
	yearLength  = 365.25 * float64(day)
	monthLength = 30 * float64(day)
)

// AverageKmPerYear estimates the distance driven per year since first
// registration. Vehicles younger than a month are projected from their
// distance so far. Missing inputs yield 0.
func AverageKmPerYear(current, initial *int, firstRegistration, asOf time.Time) int {
	if current == nil || initial == nil || firstRegistration.IsZero() {
		return 0
	}

	driven := *current - *initial
	years := float64(asOf.Sub(firstRegistration)) / yearLength
	if years < 1.0/12 {
		return driven * 12
	}
	return int(math.Round(float64(driven) / years))
}

// KmPerMonthSinceInspection estimates the monthly distance since the last
// inspection, using 30 day months. Under a quarter of a month has too little
// signal and yields 0, as do missing inputs.
func KmPerMonthSinceInspection(current, atInspection *int, lastInspection *time.Time, asOf time.Time) int {
	if current == nil || atInspection == nil || lastInspection == nil {
		return 0
	}

	months := float64(asOf.Sub(*lastInspection)) / monthLength
	if months < 0.25 {
		return 0
	}
	return int(math.Round(float64(*current-*atInspection) / months))
}
