package forecast

import (
	"fmt"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

const iconURLFormat = "https://openweathermap.org/img/wn/%s@4x.png"

// View is the display-ready rendering of a forecast for one unit.
type View struct {
	City    string      `json:"city"`
	Country string      `json:"country"`
	Unit    Unit        `json:"unit"`
	Current *EntryView  `json:"current,omitempty"`
	Days    []EntryView `json:"days"`
	Omitted []string    `json:"omittedDays,omitempty"`
}

// EntryView is one forecast entry with derived display values.
type EntryView struct {
	Date            string  `json:"date"`
	Timestamp       string  `json:"timestamp"`
	DisplayDate     string  `json:"displayDate"`
	Temperature     float64 `json:"temperature"`
	TemperatureText string  `json:"temperatureText"`
	Description     string  `json:"description"`
	Icon            string  `json:"icon"`
	IconURL         string  `json:"iconUrl,omitempty"`
	Humidity        int     `json:"humidity"`
	WindSpeedKmh    string  `json:"windSpeedKmh"`
	WindDeg         float64 `json:"windDeg"`
	WindDirection   string  `json:"windDirection"`
}

// BuildView derives the current entry and upcoming days for unit, relative to now.
func BuildView(resp models.ForecastResponse, unit Unit, now time.Time) View {
	v := View{
		City:    resp.City.Name,
		Country: resp.City.Country,
		Unit:    unit,
		Days:    []EntryView{},
	}
	if cur, ok := Current(resp); ok {
		ev := NewEntryView(cur, unit)
		v.Current = &ev
	}
	sel := SelectUpcoming(resp.List, Today(now))
	for _, d := range sel.Days {
		v.Days = append(v.Days, NewEntryView(d.Entry, unit))
	}
	v.Omitted = sel.Omitted
	return v
}

// NewEntryView renders a single entry.
func NewEntryView(e models.ForecastEntry, unit Unit) EntryView {
	ev := EntryView{
		Date:            e.Date(),
		Timestamp:       e.DtTxt,
		DisplayDate:     displayDate(e.Date()),
		Temperature:     ConvertTemp(e.Main.Temp, unit),
		TemperatureText: FormatTemp(e.Main.Temp, unit) + unit.Symbol(),
		Description:     e.Description(),
		Icon:            e.Icon(),
		Humidity:        e.Main.Humidity,
		WindSpeedKmh:    ConvertWindSpeed(e.Wind.Speed),
		WindDeg:         e.Wind.Deg,
		WindDirection:   CardinalDirection(e.Wind.Deg),
	}
	if ev.Icon != "" {
		ev.IconURL = IconURL(ev.Icon)
	}
	return ev
}

// IconURL returns the provider's large icon image for an icon code.
func IconURL(icon string) string {
	return fmt.Sprintf(iconURLFormat, icon)
}

// displayDate renders a date key like "Sun Mar 10 2024"; unparseable keys pass through.
func displayDate(key string) string {
	t, err := time.Parse(dateLayout, key)
	if err != nil {
		return key
	}
	return t.Format("Mon Jan 02 2006")
}
