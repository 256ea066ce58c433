// Package forecast turns a provider forecast into display-ready values:
// day bucketing, representative-entry selection, and unit conversion.
// Everything here is pure; callers pass the current time explicitly.
package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

const (
	// RepresentativeIndex is the entry used to summarize a day. With the provider's fixed
	// 3-hour cadence (00,03,...,21) index 4 is the 12:00 sample.
	RepresentativeIndex = 4

	// MaxUpcomingDays is the number of future days shown after today.
	MaxUpcomingDays = 3

	dateLayout = "2006-01-02"
)

// ErrInsufficientData is returned when a day has too few samples to pick a representative.
var ErrInsufficientData = errors.New("insufficient forecast data")

// DayBucket groups the entries that share a calendar date, in their original order.
type DayBucket struct {
	Date    string
	Entries []models.ForecastEntry
}

// BucketByDay partitions entries by date key. Buckets come back in the order their
// date first appeared; entries keep their relative order inside a bucket.
func BucketByDay(entries []models.ForecastEntry) []DayBucket {
	var buckets []DayBucket
	index := make(map[string]int)
	for _, e := range entries {
		key := e.Date()
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, DayBucket{Date: key})
		}
		buckets[i].Entries = append(buckets[i].Entries, e)
	}
	return buckets
}

// Flatten concatenates bucket entries back into a single sequence.
func Flatten(buckets []DayBucket) []models.ForecastEntry {
	n := 0
	for _, b := range buckets {
		n += len(b.Entries)
	}
	out := make([]models.ForecastEntry, 0, n)
	for _, b := range buckets {
		out = append(out, b.Entries...)
	}
	return out
}

// Representative returns the entry at RepresentativeIndex, or ErrInsufficientData.
func Representative(b DayBucket) (models.ForecastEntry, error) {
	if len(b.Entries) <= RepresentativeIndex {
		return models.ForecastEntry{}, fmt.Errorf("%w: %s has %d samples", ErrInsufficientData, b.Date, len(b.Entries))
	}
	return b.Entries[RepresentativeIndex], nil
}

// Today formats now as a date key. The location of now decides which day it is.
func Today(now time.Time) string {
	return now.Format(dateLayout)
}
