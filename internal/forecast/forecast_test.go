package forecast

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// day builds n entries for date at the provider's 3-hour cadence starting at startHour.
// Temperatures encode the position so tests can tell entries apart.
func day(date string, startHour, n int) []models.ForecastEntry {
	out := make([]models.ForecastEntry, 0, n)
	for i := 0; i < n; i++ {
		h := startHour + 3*i
		out = append(out, models.ForecastEntry{
			DtTxt: fmt.Sprintf("%s %02d:00:00", date, h),
			Main:  models.Main{Temp: float64(h), Humidity: 50 + i},
			Weather: []models.Condition{
				{Description: "clear sky", Icon: "01d"},
			},
			Wind: models.Wind{Speed: 2, Deg: 90},
		})
	}
	return out
}

func concat(parts ...[]models.ForecastEntry) []models.ForecastEntry {
	var out []models.ForecastEntry
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestBucketByDay_GroupsInEncounterOrder(t *testing.T) {
	entries := concat(day("2024-03-10", 15, 3), day("2024-03-11", 0, 8), day("2024-03-12", 0, 2))

	buckets := BucketByDay(entries)

	require.Len(t, buckets, 3)
	assert.Equal(t, "2024-03-10", buckets[0].Date)
	assert.Equal(t, "2024-03-11", buckets[1].Date)
	assert.Equal(t, "2024-03-12", buckets[2].Date)
	assert.Len(t, buckets[0].Entries, 3)
	assert.Len(t, buckets[1].Entries, 8)
	assert.Len(t, buckets[2].Entries, 2)
	assert.Equal(t, "2024-03-10 15:00:00", buckets[0].Entries[0].DtTxt)
	assert.Equal(t, "2024-03-10 21:00:00", buckets[0].Entries[2].DtTxt)
}

func TestBucketByDay_Empty(t *testing.T) {
	assert.Empty(t, BucketByDay(nil))
	assert.Empty(t, NextDays(nil, "2024-03-10"))
}

func TestBucketByDay_Idempotent(t *testing.T) {
	entries := concat(day("2024-03-10", 9, 5), day("2024-03-11", 0, 8), day("2024-03-12", 0, 8), day("2024-03-13", 0, 4))

	first := BucketByDay(entries)
	second := BucketByDay(Flatten(first))

	assert.Equal(t, first, second)
	assert.Equal(t, entries, Flatten(first))
}

func TestRepresentative(t *testing.T) {
	e, err := Representative(DayBucket{Date: "2024-03-11", Entries: day("2024-03-11", 0, 8)})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11 12:00:00", e.DtTxt)

	_, err = Representative(DayBucket{Date: "2024-03-12", Entries: day("2024-03-12", 0, 4)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Contains(t, err.Error(), "2024-03-12")
}

// TestNextDays_TodayPlusFourDays is the canonical scenario: three samples today, four full days
// after it. Exactly three representatives come back, one per earliest future day, each at index 4.
func TestNextDays_TodayPlusFourDays(t *testing.T) {
	entries := concat(
		day("2024-03-10", 15, 3),
		day("2024-03-11", 0, 8),
		day("2024-03-12", 0, 8),
		day("2024-03-13", 0, 8),
		day("2024-03-14", 0, 8),
	)

	got := NextDays(entries, "2024-03-10")

	require.Len(t, got, 3)
	assert.Equal(t, "2024-03-11 12:00:00", got[0].DtTxt)
	assert.Equal(t, "2024-03-12 12:00:00", got[1].DtTxt)
	assert.Equal(t, "2024-03-13 12:00:00", got[2].DtTxt)
}

func TestNextDays_NeverSelectsToday(t *testing.T) {
	entries := concat(day("2024-03-10", 0, 8), day("2024-03-11", 0, 8), day("2024-03-12", 0, 8), day("2024-03-13", 0, 8))
	for _, today := range []string{"2024-03-09", "2024-03-10", "2024-03-11", "2024-03-12", "2024-03-13", "2024-03-14"} {
		for _, e := range NextDays(entries, today) {
			assert.NotEqual(t, today, e.Date(), "today=%s", today)
		}
	}
}

func TestNextDays_TodayNotInData(t *testing.T) {
	entries := concat(day("2024-03-11", 0, 8), day("2024-03-12", 0, 8), day("2024-03-13", 0, 8), day("2024-03-14", 0, 8))

	got := NextDays(entries, "2024-03-10")

	require.Len(t, got, 3)
	assert.Equal(t, "2024-03-11", got[0].Date())
	assert.Equal(t, "2024-03-13", got[2].Date())
}

func TestSelectUpcoming_ShortDayOmittedNotReplaced(t *testing.T) {
	entries := concat(
		day("2024-03-10", 18, 2),
		day("2024-03-11", 0, 8),
		day("2024-03-12", 0, 8),
		day("2024-03-13", 0, 8),
		day("2024-03-14", 0, 8),
		day("2024-03-15", 0, 3),
	)

	sel := SelectUpcoming(entries, "2024-03-13")

	// Window after excluding today is 10, 11, 12. The 10th is short.
	require.Len(t, sel.Days, 2)
	assert.Equal(t, "2024-03-11", sel.Days[0].Date)
	assert.Equal(t, "2024-03-12", sel.Days[1].Date)
	assert.Equal(t, []string{"2024-03-10"}, sel.Omitted)
}

func TestSelectUpcoming_TrailingShortDay(t *testing.T) {
	entries := concat(day("2024-03-10", 12, 4), day("2024-03-11", 0, 8), day("2024-03-12", 0, 8), day("2024-03-13", 0, 4))

	sel := SelectUpcoming(entries, "2024-03-10")

	require.Len(t, sel.Days, 2)
	assert.Equal(t, []string{"2024-03-13"}, sel.Omitted)
}

func TestCurrent(t *testing.T) {
	_, ok := Current(models.ForecastResponse{})
	assert.False(t, ok)

	resp := models.ForecastResponse{List: concat(day("2024-03-10", 15, 3), day("2024-03-11", 0, 8))}
	cur, ok := Current(resp)
	require.True(t, ok)
	assert.Equal(t, "2024-03-10 15:00:00", cur.DtTxt)
}

func TestToday_UsesLocationOfNow(t *testing.T) {
	utc := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-10", Today(utc))

	plus2 := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "2024-03-11", Today(utc.In(plus2)))
}

func TestCardinalDirection(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{22.4, "N"},
		{22.5, "NE"},
		{44, "N"},
		{45, "NE"},
		{90, "E"},
		{135, "SE"},
		{180, "S"},
		{225, "SW"},
		{270, "W"},
		{315, "NW"},
		{337.4, "NW"},
		{337.5, "N"},
		{359, "N"},
		{359.999, "N"},
		{360, "N"},
		{405, "NE"},
		{-45, "NW"},
		{-1, "N"},
		{-360, "N"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CardinalDirection(tt.deg), "deg=%v", tt.deg)
	}
}

func TestCardinalDirection_NonFinite(t *testing.T) {
	assert.Equal(t, "", CardinalDirection(math.NaN()))
	assert.Equal(t, "", CardinalDirection(math.Inf(1)))
	assert.Equal(t, "", CardinalDirection(math.Inf(-1)))
}

func TestConvertTemp(t *testing.T) {
	assert.Equal(t, 32.0, ConvertTemp(0, Fahrenheit))
	assert.Equal(t, 212.0, ConvertTemp(100, Fahrenheit))
	assert.Equal(t, -40.0, ConvertTemp(-40, Fahrenheit))
	for _, c := range []float64{-12.5, 0, 21.3, 100} {
		assert.Equal(t, c, ConvertTemp(c, Celsius))
		assert.InDelta(t, c*9/5+32, ConvertTemp(c, Fahrenheit), 1e-9)
	}
}

func TestFormatTemp(t *testing.T) {
	assert.Equal(t, "21.3", FormatTemp(21.34, Celsius))
	assert.Equal(t, "70.4", FormatTemp(21.34, Fahrenheit))
	assert.Equal(t, "32.0", FormatTemp(0, Fahrenheit))
}

func TestConvertWindSpeed(t *testing.T) {
	assert.Equal(t, "36.0", ConvertWindSpeed(10))
	assert.Equal(t, "0.0", ConvertWindSpeed(0))
	assert.Equal(t, "14.8", ConvertWindSpeed(4.1))
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{"", Celsius, false},
		{"C", Celsius, false},
		{"c", Celsius, false},
		{" celsius ", Celsius, false},
		{"F", Fahrenheit, false},
		{"fahrenheit", Fahrenheit, false},
		{"K", "", true},
	}
	for _, tt := range tests {
		got, err := ParseUnit(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidUnit, "in=%q", tt.in)
			continue
		}
		require.NoError(t, err, "in=%q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestBuildView(t *testing.T) {
	resp := models.ForecastResponse{
		City: models.City{Name: "London", Country: "GB"},
		List: concat(
			day("2024-03-10", 15, 3),
			day("2024-03-11", 0, 8),
			day("2024-03-12", 0, 8),
			day("2024-03-13", 0, 3),
			day("2024-03-14", 0, 8),
		),
	}
	now := time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)

	v := BuildView(resp, Fahrenheit, now)

	assert.Equal(t, "London", v.City)
	assert.Equal(t, "GB", v.Country)
	assert.Equal(t, Fahrenheit, v.Unit)
	require.NotNil(t, v.Current)
	assert.Equal(t, "2024-03-10 15:00:00", v.Current.Timestamp)
	assert.Equal(t, "59.0°F", v.Current.TemperatureText)
	assert.Equal(t, "Sun Mar 10 2024", v.Current.DisplayDate)
	assert.Equal(t, "7.2", v.Current.WindSpeedKmh)
	assert.Equal(t, "E", v.Current.WindDirection)
	assert.Equal(t, "https://openweathermap.org/img/wn/01d@4x.png", v.Current.IconURL)

	require.Len(t, v.Days, 2)
	assert.Equal(t, "2024-03-11", v.Days[0].Date)
	assert.InDelta(t, 53.6, v.Days[0].Temperature, 1e-9)
	assert.Equal(t, []string{"2024-03-13"}, v.Omitted)
}

func TestBuildView_EmptyResponse(t *testing.T) {
	v := BuildView(models.ForecastResponse{}, Celsius, time.Now())
	assert.Nil(t, v.Current)
	assert.NotNil(t, v.Days)
	assert.Empty(t, v.Days)
}
