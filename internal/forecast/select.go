package forecast

import (
	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// DayForecast pairs a date key with its representative entry.
type DayForecast struct {
	Date  string
	Entry models.ForecastEntry
}

// Selection is the result of picking upcoming days.
// Omitted lists dates that fell inside the window but had too few samples.
type Selection struct {
	Days    []DayForecast
	Omitted []string
}

// Entries returns the representative entries in date order.
func (s Selection) Entries() []models.ForecastEntry {
	out := make([]models.ForecastEntry, 0, len(s.Days))
	for _, d := range s.Days {
		out = append(out, d.Entry)
	}
	return out
}

// SelectUpcoming drops today's bucket, keeps the first MaxUpcomingDays remaining buckets
// and picks a representative for each. The window is fixed before omission: a short day
// inside it is dropped, not replaced by a later one.
func SelectUpcoming(entries []models.ForecastEntry, today string) Selection {
	var sel Selection
	taken := 0
	for _, b := range BucketByDay(entries) {
		if b.Date == today {
			continue
		}
		if taken == MaxUpcomingDays {
			break
		}
		taken++
		e, err := Representative(b)
		if err != nil {
			sel.Omitted = append(sel.Omitted, b.Date)
			continue
		}
		sel.Days = append(sel.Days, DayForecast{Date: b.Date, Entry: e})
	}
	return sel
}

// NextDays returns up to MaxUpcomingDays representative entries after today, ascending by date.
func NextDays(entries []models.ForecastEntry, today string) []models.ForecastEntry {
	return SelectUpcoming(entries, today).Entries()
}

// Current returns the first entry of the response, independent of bucketing.
func Current(resp models.ForecastResponse) (models.ForecastEntry, bool) {
	if len(resp.List) == 0 {
		return models.ForecastEntry{}, false
	}
	return resp.List[0], true
}
